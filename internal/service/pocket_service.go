package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/haru-album/pocket-backend/internal/db"
	"github.com/haru-album/pocket-backend/internal/repository"
	"github.com/haru-album/pocket-backend/internal/storage"
)

// Notifier pushes membership lifecycle events to connected clients.
// Satisfied by socket.Broadcaster.
type Notifier interface {
	SendInviteReceived(userID string, pocket map[string]interface{}, invitedBy string)
	SendInviteCancelled(userID, pocketID, cancelledBy string)
	BroadcastMemberJoined(pocketID string, member map[string]interface{}, excludeUserID string)
	BroadcastMemberLeft(pocketID, userID string)
	BroadcastMemberBanned(pocketID, bannedUserID, bannedBy string)
	BroadcastMasterChanged(pocketID, oldMasterID, newMasterID string)
	BroadcastPocketUpdated(pocketID string, pocket map[string]interface{}, excludeUserID string)
	BroadcastPocketDeleted(pocketID string)
}

const (
	pocketKeyCachePrefix = "pocketkey:"
	pocketKeyCacheTTL    = 24 * time.Hour
)

// ============================================
// Pocket Service
// ============================================

// PocketService owns the membership lifecycle. Memberships move
// ABSENT -> PENDING (invite) -> ACTIVE (accept) -> ABSENT (leave/ban/cancel),
// and a pocket with zero memberships is deleted in the same transaction
// that removed the last one.
type PocketService interface {
	Create(ctx context.Context, creatorID, name string, description, imageBase64 *string, invitedUserIDs []string) (*repository.Pocket, error)
	GetByID(ctx context.Context, userID, pocketID string) (*repository.Pocket, error)
	ListByUser(ctx context.Context, userID string) ([]*repository.Pocket, error)
	Update(ctx context.Context, actorID, pocketID string, name, description, imageBase64 *string) (*repository.Pocket, error)

	InviteUsers(ctx context.Context, actorID, pocketID string, userIDs []string) error
	InviteViaLink(ctx context.Context, userID, inviteKey string) (*repository.Pocket, error)
	AcceptInvitation(ctx context.Context, userID, pocketID string) error
	CancelInvitation(ctx context.Context, actorID, pocketID, targetUserID string) error
	BanUser(ctx context.Context, actorID, pocketID, targetUserID string) error
	Leave(ctx context.Context, userID, pocketID string) error
	DelegateMaster(ctx context.Context, actorID, pocketID, newMasterID string) error

	ListPendingInvitees(ctx context.Context, pocketID string) ([]*repository.Membership, error)
	ListJoinedUsers(ctx context.Context, pocketID string) ([]*repository.Membership, error)
	ResolveInviteKey(ctx context.Context, inviteKey string) (*repository.Pocket, error)
	InviteLink(pocket *repository.Pocket) string
}

type pocketService struct {
	pocketRepo     repository.PocketRepository
	membershipRepo repository.MembershipRepository
	userRepo       repository.UserRepository
	cache          *db.RedisDB
	uploader       storage.Uploader
	notifier       Notifier
	inviteLinkBase string
}

func NewPocketService(
	pocketRepo repository.PocketRepository,
	membershipRepo repository.MembershipRepository,
	userRepo repository.UserRepository,
	cache *db.RedisDB,
	uploader storage.Uploader,
	notifier Notifier,
	inviteLinkBase string,
) PocketService {
	return &pocketService{
		pocketRepo:     pocketRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		cache:          cache,
		uploader:       uploader,
		notifier:       notifier,
		inviteLinkBase: inviteLinkBase,
	}
}

// ============================================
// Pocket CRUD
// ============================================

func (s *pocketService) Create(ctx context.Context, creatorID, name string, description, imageBase64 *string, invitedUserIDs []string) (*repository.Pocket, error) {
	creator, err := s.userRepo.FindByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, ErrUserNotFound
	}

	// Deduplicate invitees against the creator and each other;
	// every remaining id must resolve to a real user.
	seen := map[string]bool{creatorID: true}
	invitees := make([]string, 0, len(invitedUserIDs))
	for _, id := range invitedUserIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		user, err := s.userRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		invitees = append(invitees, id)
	}

	pocket := &repository.Pocket{
		Name:        name,
		Description: description,
		MasterID:    creatorID,
	}

	if imageBase64 != nil {
		url, err := s.uploader.UploadBase64(*imageBase64, "pocket_"+creatorID)
		if err != nil {
			return nil, fmt.Errorf("failed to upload pocket image: %w", err)
		}
		pocket.ImageURL = &url
	}

	if err := s.pocketRepo.CreateWithMembers(ctx, pocket, invitees); err != nil {
		return nil, fmt.Errorf("failed to create pocket: %w", err)
	}

	log.Printf("📦 Pocket created: id=%s, master=%s, invited=%d", pocket.ID, creatorID, len(invitees))

	if s.notifier != nil {
		summary := pocketSummary(pocket)
		for _, userID := range invitees {
			s.notifier.SendInviteReceived(userID, summary, creatorID)
		}
	}

	return pocket, nil
}

func (s *pocketService) GetByID(ctx context.Context, userID, pocketID string) (*repository.Pocket, error) {
	pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
	if err != nil {
		return nil, err
	}
	if pocket == nil {
		return nil, ErrNotFound
	}

	members, err := s.membershipRepo.FindByPocket(ctx, pocketID)
	if err != nil {
		return nil, err
	}
	pocket.Members = members

	return pocket, nil
}

func (s *pocketService) ListByUser(ctx context.Context, userID string) ([]*repository.Pocket, error) {
	return s.pocketRepo.FindByUserID(ctx, userID)
}

func (s *pocketService) Update(ctx context.Context, actorID, pocketID string, name, description, imageBase64 *string) (*repository.Pocket, error) {
	pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
	if err != nil {
		return nil, err
	}
	if pocket == nil {
		return nil, ErrNotFound
	}

	// Rename and image change are master privileges
	if pocket.MasterID != actorID {
		return nil, ErrForbidden
	}

	if name != nil {
		pocket.Name = *name
	}
	if description != nil {
		pocket.Description = description
	}
	if imageBase64 != nil {
		url, err := s.uploader.UploadBase64(*imageBase64, "pocket_"+pocket.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to upload pocket image: %w", err)
		}
		pocket.ImageURL = &url
	}

	if err := s.pocketRepo.Update(ctx, pocket); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.BroadcastPocketUpdated(pocket.ID, pocketSummary(pocket), actorID)
	}

	return pocket, nil
}

// ============================================
// Invitations
// ============================================

func (s *pocketService) InviteUsers(ctx context.Context, actorID, pocketID string, userIDs []string) error {
	pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
	if err != nil {
		return err
	}
	if pocket == nil {
		return ErrNotFound
	}

	// Resolve every target before writing anything, so a bad id in the
	// middle of the list does not leave a half-applied invite batch.
	seen := map[string]bool{}
	targets := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		user, err := s.userRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		targets = append(targets, id)
	}

	newTargets := make([]string, 0, len(targets))
	for _, userID := range targets {
		existing, err := s.membershipRepo.Find(ctx, pocketID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			// Already pending or active, skip
			continue
		}
		newTargets = append(newTargets, userID)
	}

	if len(newTargets) == 0 {
		return nil
	}

	// All pending rows land in one transaction; a failure mid-batch
	// leaves no invitations behind, and nobody is notified of one.
	if err := s.membershipRepo.AddBatch(ctx, pocketID, newTargets, false); err != nil {
		return err
	}

	if s.notifier != nil {
		for _, userID := range newTargets {
			s.notifier.SendInviteReceived(userID, pocketSummary(pocket), actorID)
		}
	}

	log.Printf("✉️  Invited %d user(s) to pocket %s", len(newTargets), pocketID)
	return nil
}

func (s *pocketService) InviteViaLink(ctx context.Context, userID, inviteKey string) (*repository.Pocket, error) {
	pocket, err := s.ResolveInviteKey(ctx, inviteKey)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// Repeated clicks on the same link must not pile up pending rows;
	// an existing membership in either state makes this a no-op.
	member := &repository.Membership{
		PocketID:  pocket.ID,
		UserID:    userID,
		Activated: false,
	}
	created, err := s.membershipRepo.Add(ctx, member)
	if err != nil {
		return nil, err
	}

	// Only the click that created the invitation notifies
	if created && s.notifier != nil {
		s.notifier.SendInviteReceived(userID, pocketSummary(pocket), pocket.MasterID)
	}

	return pocket, nil
}

func (s *pocketService) AcceptInvitation(ctx context.Context, userID, pocketID string) error {
	member, err := s.membershipRepo.Find(ctx, pocketID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotFound
	}

	if member.Activated {
		// Accepting twice is fine
		return nil
	}

	if err := s.membershipRepo.Activate(ctx, pocketID, userID); err != nil {
		return err
	}

	log.Printf("✅ User %s joined pocket %s", userID, pocketID)

	if s.notifier != nil {
		s.notifier.BroadcastMemberJoined(pocketID, map[string]interface{}{
			"pocketId": pocketID,
			"userId":   userID,
		}, userID)
	}

	return nil
}

func (s *pocketService) CancelInvitation(ctx context.Context, actorID, pocketID, targetUserID string) error {
	pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
	if err != nil {
		return err
	}
	if pocket == nil {
		return ErrNotFound
	}

	target, err := s.membershipRepo.Find(ctx, pocketID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}

	// The master's own membership is never removable through cancel;
	// the exactly-one-master invariant depends on it.
	if targetUserID == pocket.MasterID {
		return ErrMasterProtected
	}

	// Only an active member may rescind an invite. Anyone else gets a
	// silent success so membership structure is not leaked to outsiders.
	actor, err := s.membershipRepo.Find(ctx, pocketID, actorID)
	if err != nil {
		return err
	}
	if actor == nil || !actor.Activated {
		return nil
	}

	if _, err := s.removeMembership(ctx, pocket, targetUserID); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.SendInviteCancelled(targetUserID, pocketID, actorID)
	}

	return nil
}

func (s *pocketService) BanUser(ctx context.Context, actorID, pocketID, targetUserID string) error {
	pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
	if err != nil {
		return err
	}
	if pocket == nil {
		return ErrNotFound
	}

	// Ban is a master privilege; anyone else gets a silent success
	// before the target is even looked up, so a non-master cannot
	// learn who holds a membership.
	if actorID != pocket.MasterID {
		return nil
	}

	target, err := s.membershipRepo.Find(ctx, pocketID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}

	if targetUserID == pocket.MasterID {
		return ErrMasterProtected
	}

	if _, err := s.removeMembership(ctx, pocket, targetUserID); err != nil {
		return err
	}

	log.Printf("🚫 User %s banned from pocket %s by %s", targetUserID, pocketID, actorID)

	if s.notifier != nil {
		s.notifier.BroadcastMemberBanned(pocketID, targetUserID, actorID)
	}

	return nil
}

func (s *pocketService) Leave(ctx context.Context, userID, pocketID string) error {
	pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
	if err != nil {
		return err
	}
	if pocket == nil {
		return ErrNotFound
	}

	member, err := s.membershipRepo.Find(ctx, pocketID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotMember
	}

	if userID == pocket.MasterID {
		count, err := s.membershipRepo.CountByPocket(ctx, pocketID)
		if err != nil {
			return err
		}
		if count > 1 {
			return ErrMasterCannotLeave
		}
	}

	pocketDeleted, err := s.removeMembership(ctx, pocket, userID)
	if err != nil {
		return err
	}

	log.Printf("👋 User %s left pocket %s (deleted=%t)", userID, pocketID, pocketDeleted)

	if s.notifier != nil && !pocketDeleted {
		s.notifier.BroadcastMemberLeft(pocketID, userID)
	}

	return nil
}

func (s *pocketService) DelegateMaster(ctx context.Context, actorID, pocketID, newMasterID string) error {
	pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
	if err != nil {
		return err
	}
	if pocket == nil {
		return ErrNotFound
	}

	// Delegation is a master privilege; anyone else gets a silent success.
	if actorID != pocket.MasterID {
		return nil
	}

	if newMasterID == pocket.MasterID {
		return nil
	}

	// Mastership cannot be handed to an outsider or a pending invitee.
	member, err := s.membershipRepo.Find(ctx, pocketID, newMasterID)
	if err != nil {
		return err
	}
	if member == nil || !member.Activated {
		return ErrNotMember
	}

	if err := s.pocketRepo.UpdateMaster(ctx, pocketID, newMasterID); err != nil {
		return err
	}

	log.Printf("👑 Pocket %s master changed: %s -> %s", pocketID, actorID, newMasterID)

	if s.notifier != nil {
		s.notifier.BroadcastMasterChanged(pocketID, actorID, newMasterID)
	}

	return nil
}

// ============================================
// Queries
// ============================================

func (s *pocketService) ListPendingInvitees(ctx context.Context, pocketID string) ([]*repository.Membership, error) {
	pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
	if err != nil {
		return nil, err
	}
	if pocket == nil {
		return nil, ErrNotFound
	}
	return s.membershipRepo.FindPendingByPocket(ctx, pocketID)
}

func (s *pocketService) ListJoinedUsers(ctx context.Context, pocketID string) ([]*repository.Membership, error) {
	pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
	if err != nil {
		return nil, err
	}
	if pocket == nil {
		return nil, ErrNotFound
	}
	return s.membershipRepo.FindActiveByPocket(ctx, pocketID)
}

// ResolveInviteKey maps an opaque invite key to its pocket, caching the
// key -> id mapping in Redis. Keys from deleted pockets stay unresolvable
// forever; keys are never recycled.
func (s *pocketService) ResolveInviteKey(ctx context.Context, inviteKey string) (*repository.Pocket, error) {
	if s.cache != nil {
		var pocketID string
		if err := s.cache.GetCache(ctx, pocketKeyCachePrefix+inviteKey, &pocketID); err == nil && pocketID != "" {
			pocket, err := s.pocketRepo.FindByID(ctx, pocketID)
			if err == nil && pocket != nil {
				return pocket, nil
			}
			// Stale entry, fall through to the database
			s.cache.DeleteCache(ctx, pocketKeyCachePrefix+inviteKey)
		}
	}

	pocket, err := s.pocketRepo.FindByKey(ctx, inviteKey)
	if err != nil {
		return nil, err
	}
	if pocket == nil {
		return nil, ErrNotFound
	}

	if s.cache != nil {
		if err := s.cache.SetCache(ctx, pocketKeyCachePrefix+inviteKey, pocket.ID, pocketKeyCacheTTL); err != nil {
			log.Printf("⚠️ Failed to cache invite key: %v", err)
		}
	}

	return pocket, nil
}

// InviteLink builds the shareable invitation URL for a pocket.
func (s *pocketService) InviteLink(pocket *repository.Pocket) string {
	return s.inviteLinkBase + "/" + pocket.PocketKey
}

// ============================================
// Helpers
// ============================================

// removeMembership deletes one membership and, in the same transaction,
// the pocket itself when that was the last row. Returns whether the
// pocket was deleted.
func (s *pocketService) removeMembership(ctx context.Context, pocket *repository.Pocket, userID string) (bool, error) {
	pocketDeleted, err := s.membershipRepo.RemoveAndCollapse(ctx, pocket.ID, userID)
	if err != nil {
		return false, err
	}

	if pocketDeleted {
		log.Printf("🗑️  Pocket %s deleted: last member left", pocket.ID)
		if s.cache != nil {
			s.cache.DeleteCache(ctx, pocketKeyCachePrefix+pocket.PocketKey)
		}
		if s.notifier != nil {
			s.notifier.BroadcastPocketDeleted(pocket.ID)
		}
	}

	return pocketDeleted, nil
}

func pocketSummary(pocket *repository.Pocket) map[string]interface{} {
	summary := map[string]interface{}{
		"id":       pocket.ID,
		"name":     pocket.Name,
		"masterId": pocket.MasterID,
	}
	if pocket.ImageURL != nil {
		summary["imageUrl"] = *pocket.ImageURL
	}
	return summary
}
