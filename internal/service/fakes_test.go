package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haru-album/pocket-backend/internal/repository"
)

// In-memory repositories sharing one store, so RemoveAndCollapse can
// delete the pocket row the same way the SQL transaction does.

type fakeStore struct {
	users         map[string]*repository.User
	pockets       map[string]*repository.Pocket
	memberships   map[string]*repository.Membership // keyed pocketID|userID
	refreshTokens map[string]*repository.RefreshToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]*repository.User),
		pockets:       make(map[string]*repository.Pocket),
		memberships:   make(map[string]*repository.Membership),
		refreshTokens: make(map[string]*repository.RefreshToken),
	}
}

func memberKey(pocketID, userID string) string {
	return pocketID + "|" + userID
}

func (s *fakeStore) addUser(nickname string) *repository.User {
	user := &repository.User{
		ID:        uuid.New().String(),
		Email:     nickname + "@example.com",
		Password:  "hashed",
		Nickname:  nickname,
		CreatedAt: time.Now(),
	}
	s.users[user.ID] = user
	return user
}

func (s *fakeStore) membershipCount(pocketID string) int {
	count := 0
	for _, m := range s.memberships {
		if m.PocketID == pocketID {
			count++
		}
	}
	return count
}

// ============================================
// User repository fake
// ============================================

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) Create(ctx context.Context, user *repository.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	r.store.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*repository.User, error) {
	return r.store.users[id], nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	for _, u := range r.store.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Search(ctx context.Context, keyword string, limit int) ([]*repository.User, error) {
	var out []*repository.User
	for _, u := range r.store.users {
		if strings.Contains(u.Nickname, keyword) || strings.Contains(u.Email, keyword) {
			out = append(out, u)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *repository.User) error {
	if _, ok := r.store.users[user.ID]; !ok {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	r.store.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) SaveRefreshToken(ctx context.Context, token *repository.RefreshToken) error {
	token.ID = uuid.New().String()
	r.store.refreshTokens[token.Token] = token
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, token string) (*repository.RefreshToken, error) {
	return r.store.refreshTokens[token], nil
}

func (r *fakeUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	delete(r.store.refreshTokens, token)
	return nil
}

func (r *fakeUserRepo) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	for k, t := range r.store.refreshTokens {
		if t.UserID == userID {
			delete(r.store.refreshTokens, k)
		}
	}
	return nil
}

func (r *fakeUserRepo) DeleteExpiredRefreshTokens(ctx context.Context) (int, error) {
	deleted := 0
	for k, t := range r.store.refreshTokens {
		if time.Now().After(t.ExpiresAt) {
			delete(r.store.refreshTokens, k)
			deleted++
		}
	}
	return deleted, nil
}

// ============================================
// Pocket repository fake
// ============================================

type fakePocketRepo struct {
	store *fakeStore
}

func (r *fakePocketRepo) CreateWithMembers(ctx context.Context, pocket *repository.Pocket, invitedUserIDs []string) error {
	pocket.ID = uuid.New().String()
	pocket.PocketKey = uuid.New().String()
	pocket.CreatedAt = time.Now()
	pocket.UpdatedAt = pocket.CreatedAt
	r.store.pockets[pocket.ID] = pocket

	master := &repository.Membership{
		ID:        uuid.New().String(),
		PocketID:  pocket.ID,
		UserID:    pocket.MasterID,
		Activated: true,
		CreatedAt: time.Now(),
	}
	r.store.memberships[memberKey(pocket.ID, pocket.MasterID)] = master

	for _, userID := range invitedUserIDs {
		r.store.memberships[memberKey(pocket.ID, userID)] = &repository.Membership{
			ID:        uuid.New().String(),
			PocketID:  pocket.ID,
			UserID:    userID,
			Activated: false,
			CreatedAt: time.Now(),
		}
	}
	return nil
}

func (r *fakePocketRepo) FindByID(ctx context.Context, id string) (*repository.Pocket, error) {
	return r.store.pockets[id], nil
}

func (r *fakePocketRepo) FindByKey(ctx context.Context, pocketKey string) (*repository.Pocket, error) {
	for _, p := range r.store.pockets {
		if p.PocketKey == pocketKey {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePocketRepo) FindByUserID(ctx context.Context, userID string) ([]*repository.Pocket, error) {
	var out []*repository.Pocket
	for _, m := range r.store.memberships {
		if m.UserID == userID {
			if p, ok := r.store.pockets[m.PocketID]; ok {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *fakePocketRepo) Update(ctx context.Context, pocket *repository.Pocket) error {
	if _, ok := r.store.pockets[pocket.ID]; !ok {
		return fmt.Errorf("pocket not found: %s", pocket.ID)
	}
	pocket.UpdatedAt = time.Now()
	r.store.pockets[pocket.ID] = pocket
	return nil
}

func (r *fakePocketRepo) UpdateMaster(ctx context.Context, pocketID, userID string) error {
	p, ok := r.store.pockets[pocketID]
	if !ok {
		return fmt.Errorf("pocket not found: %s", pocketID)
	}
	p.MasterID = userID
	return nil
}

// ============================================
// Membership repository fake
// ============================================

type fakeMembershipRepo struct {
	store *fakeStore

	// When set, AddBatch fails atomically: the error is returned and
	// nothing is written, mirroring a rolled-back transaction.
	addBatchErr error
}

func (r *fakeMembershipRepo) Add(ctx context.Context, member *repository.Membership) (bool, error) {
	key := memberKey(member.PocketID, member.UserID)
	if _, exists := r.store.memberships[key]; exists {
		// Already a member, that's fine
		return false, nil
	}
	member.ID = uuid.New().String()
	member.CreatedAt = time.Now()
	r.store.memberships[key] = member
	return true, nil
}

func (r *fakeMembershipRepo) AddBatch(ctx context.Context, pocketID string, userIDs []string, activated bool) error {
	if r.addBatchErr != nil {
		return r.addBatchErr
	}
	for _, userID := range userIDs {
		if _, err := r.Add(ctx, &repository.Membership{
			PocketID:  pocketID,
			UserID:    userID,
			Activated: activated,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMembershipRepo) Find(ctx context.Context, pocketID, userID string) (*repository.Membership, error) {
	return r.store.memberships[memberKey(pocketID, userID)], nil
}

func (r *fakeMembershipRepo) FindByPocket(ctx context.Context, pocketID string) ([]*repository.Membership, error) {
	var out []*repository.Membership
	for _, m := range r.store.memberships {
		if m.PocketID == pocketID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMembershipRepo) FindActiveByPocket(ctx context.Context, pocketID string) ([]*repository.Membership, error) {
	var out []*repository.Membership
	for _, m := range r.store.memberships {
		if m.PocketID == pocketID && m.Activated {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMembershipRepo) FindPendingByPocket(ctx context.Context, pocketID string) ([]*repository.Membership, error) {
	var out []*repository.Membership
	for _, m := range r.store.memberships {
		if m.PocketID == pocketID && !m.Activated {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMembershipRepo) CountByPocket(ctx context.Context, pocketID string) (int, error) {
	return r.store.membershipCount(pocketID), nil
}

func (r *fakeMembershipRepo) Activate(ctx context.Context, pocketID, userID string) error {
	m, ok := r.store.memberships[memberKey(pocketID, userID)]
	if !ok {
		return fmt.Errorf("membership not found")
	}
	m.Activated = true
	return nil
}

func (r *fakeMembershipRepo) RemoveAndCollapse(ctx context.Context, pocketID, userID string) (bool, error) {
	delete(r.store.memberships, memberKey(pocketID, userID))
	if r.store.membershipCount(pocketID) == 0 {
		delete(r.store.pockets, pocketID)
		return true, nil
	}
	return false, nil
}

// ============================================
// Uploader fake
// ============================================

type fakeUploader struct{}

func (u *fakeUploader) UploadBase64(base64Image, publicID string) (string, error) {
	return "https://images.example.com/" + publicID, nil
}

// ============================================
// Notifier spy
// ============================================

type spyNotifier struct {
	invitesReceived  []string // user IDs notified of a new invitation
	invitesCancelled []string
	membersJoined    []string
	membersLeft      []string
	membersBanned    []string
	masterChanges    []string
	pocketsUpdated   []string
	pocketsDeleted   []string
}

func (n *spyNotifier) SendInviteReceived(userID string, pocket map[string]interface{}, invitedBy string) {
	n.invitesReceived = append(n.invitesReceived, userID)
}

func (n *spyNotifier) SendInviteCancelled(userID, pocketID, cancelledBy string) {
	n.invitesCancelled = append(n.invitesCancelled, userID)
}

func (n *spyNotifier) BroadcastMemberJoined(pocketID string, member map[string]interface{}, excludeUserID string) {
	n.membersJoined = append(n.membersJoined, pocketID)
}

func (n *spyNotifier) BroadcastMemberLeft(pocketID, userID string) {
	n.membersLeft = append(n.membersLeft, userID)
}

func (n *spyNotifier) BroadcastMemberBanned(pocketID, bannedUserID, bannedBy string) {
	n.membersBanned = append(n.membersBanned, bannedUserID)
}

func (n *spyNotifier) BroadcastMasterChanged(pocketID, oldMasterID, newMasterID string) {
	n.masterChanges = append(n.masterChanges, newMasterID)
}

func (n *spyNotifier) BroadcastPocketUpdated(pocketID string, pocket map[string]interface{}, excludeUserID string) {
	n.pocketsUpdated = append(n.pocketsUpdated, pocketID)
}

func (n *spyNotifier) BroadcastPocketDeleted(pocketID string) {
	n.pocketsDeleted = append(n.pocketsDeleted, pocketID)
}
