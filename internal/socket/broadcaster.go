// internal/socket/broadcaster.go
package socket

import "log"

// Broadcaster provides high-level methods for broadcasting pocket events
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// ============================================
// Invitation Broadcasting
// ============================================

// SendInviteReceived notifies an invited user of a new pending invitation
func (b *Broadcaster) SendInviteReceived(userID string, pocket map[string]interface{}, invitedBy string) {
	b.hub.SendToUser(userID, MessageInviteReceived, map[string]interface{}{
		"pocket":    pocket,
		"invitedBy": invitedBy,
	})
}

// SendInviteCancelled notifies a user their pending invitation was cancelled
func (b *Broadcaster) SendInviteCancelled(userID, pocketID, cancelledBy string) {
	b.hub.SendToUser(userID, MessageInviteCancelled, map[string]interface{}{
		"pocketId":    pocketID,
		"cancelledBy": cancelledBy,
	})
}

// ============================================
// Membership Broadcasting
// ============================================

// BroadcastMemberJoined broadcasts a newly activated member to pocket members
func (b *Broadcaster) BroadcastMemberJoined(pocketID string, member map[string]interface{}, excludeUserID string) {
	room := PocketRoom(pocketID)
	log.Printf("📡 BroadcastMemberJoined: room=%s, userId=%v", room, member["userId"])
	b.hub.SendToRoom(room, MessageMemberJoined, member, excludeUserID)
}

// BroadcastMemberLeft broadcasts a member departure to pocket members
func (b *Broadcaster) BroadcastMemberLeft(pocketID, userID string) {
	b.hub.SendToRoom(PocketRoom(pocketID), MessageMemberLeft, map[string]interface{}{
		"pocketId": pocketID,
		"userId":   userID,
	}, userID)
}

// BroadcastMemberBanned notifies the banned user and the remaining members
func (b *Broadcaster) BroadcastMemberBanned(pocketID, bannedUserID, bannedBy string) {
	payload := map[string]interface{}{
		"pocketId": pocketID,
		"userId":   bannedUserID,
		"bannedBy": bannedBy,
	}
	b.hub.SendToUser(bannedUserID, MessageMemberBanned, payload)
	b.hub.SendToRoom(PocketRoom(pocketID), MessageMemberBanned, payload, bannedUserID)
}

// BroadcastMasterChanged broadcasts a master delegation to pocket members
func (b *Broadcaster) BroadcastMasterChanged(pocketID, oldMasterID, newMasterID string) {
	b.hub.SendToRoom(PocketRoom(pocketID), MessageMasterChanged, map[string]interface{}{
		"pocketId":    pocketID,
		"oldMasterId": oldMasterID,
		"newMasterId": newMasterID,
	}, "")
}

// ============================================
// Pocket Broadcasting
// ============================================

// BroadcastPocketUpdated broadcasts pocket metadata changes to its members
func (b *Broadcaster) BroadcastPocketUpdated(pocketID string, pocket map[string]interface{}, excludeUserID string) {
	b.hub.SendToRoom(PocketRoom(pocketID), MessagePocketUpdated, pocket, excludeUserID)
}

// BroadcastPocketDeleted broadcasts pocket deletion to its members
func (b *Broadcaster) BroadcastPocketDeleted(pocketID string) {
	log.Printf("📡 BroadcastPocketDeleted: pocketId=%s", pocketID)
	b.hub.SendToRoom(PocketRoom(pocketID), MessagePocketDeleted, map[string]interface{}{
		"pocketId": pocketID,
	}, "")
}
