package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haru-album/pocket-backend/internal/repository"
)

func newTestPocketService(store *fakeStore) PocketService {
	return newTestPocketServiceWith(store, &fakeMembershipRepo{store: store}, nil)
}

func newTestPocketServiceWith(store *fakeStore, members *fakeMembershipRepo, notifier Notifier) PocketService {
	return NewPocketService(
		&fakePocketRepo{store: store},
		members,
		&fakeUserRepo{store: store},
		nil,
		&fakeUploader{},
		notifier,
		"https://app.example.com/invite",
	)
}

// ============================================
// Create
// ============================================

func TestCreatePocket(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee1 := store.addUser("invitee1")
	invitee2 := store.addUser("invitee2")

	pocket, err := svc.Create(ctx, creator.ID, "Trip to Jeju", nil, nil, []string{invitee1.ID, invitee2.ID})
	require.NoError(t, err)
	require.NotNil(t, pocket)
	assert.Equal(t, creator.ID, pocket.MasterID)
	assert.NotEmpty(t, pocket.PocketKey)

	master, err := svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	require.Len(t, master, 1)
	assert.Equal(t, creator.ID, master[0].UserID)
	assert.True(t, master[0].Activated)

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestCreatePocketDeduplicatesCreator(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee := store.addUser("invitee")

	// Creator in the invite list must not downgrade their active membership
	pocket, err := svc.Create(ctx, creator.ID, "Family", nil, nil, []string{creator.ID, invitee.ID, invitee.ID})
	require.NoError(t, err)

	members, err := svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.True(t, members[0].Activated)

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCreatePocketUnknownInvitee(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")

	_, err := svc.Create(ctx, creator.ID, "Ghost town", nil, nil, []string{"no-such-user"})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, store.pockets)
}

// ============================================
// InviteUsers
// ============================================

func TestInviteUsersIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	friend := store.addUser("friend")

	pocket, err := svc.Create(ctx, creator.ID, "Hiking", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.InviteUsers(ctx, creator.ID, pocket.ID, []string{friend.ID}))
	require.NoError(t, svc.InviteUsers(ctx, creator.ID, pocket.ID, []string{friend.ID}))

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestInviteUsersActiveMemberIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	friend := store.addUser("friend")

	pocket, err := svc.Create(ctx, creator.ID, "Hiking", nil, nil, []string{friend.ID})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvitation(ctx, friend.ID, pocket.ID))

	// Re-inviting an active member must not reset them to pending
	require.NoError(t, svc.InviteUsers(ctx, creator.ID, pocket.ID, []string{friend.ID}))

	member, err := (&fakeMembershipRepo{store: store}).Find(ctx, pocket.ID, friend.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.True(t, member.Activated)
}

func TestInviteUsersUnknownTargets(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	pocket, err := svc.Create(ctx, creator.ID, "Hiking", nil, nil, nil)
	require.NoError(t, err)

	err = svc.InviteUsers(ctx, creator.ID, pocket.ID, []string{"no-such-user"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = svc.InviteUsers(ctx, creator.ID, "no-such-pocket", []string{creator.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInviteUsersFailedBatchLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	notifier := &spyNotifier{}
	members := &fakeMembershipRepo{store: store, addBatchErr: errors.New("connection reset")}
	svc := newTestPocketServiceWith(store, members, notifier)

	creator := store.addUser("creator")
	friendA := store.addUser("friendA")
	friendB := store.addUser("friendB")

	pocket, err := svc.Create(ctx, creator.ID, "Hiking", nil, nil, nil)
	require.NoError(t, err)

	err = svc.InviteUsers(ctx, creator.ID, pocket.ID, []string{friendA.ID, friendB.ID})
	require.Error(t, err)

	// The batch rolled back whole, so neither invitation exists and
	// nobody was told about one.
	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, notifier.invitesReceived)
}

func TestInviteUsersNotifiesEachNewInvitee(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	notifier := &spyNotifier{}
	svc := newTestPocketServiceWith(store, &fakeMembershipRepo{store: store}, notifier)

	creator := store.addUser("creator")
	friendA := store.addUser("friendA")
	friendB := store.addUser("friendB")

	pocket, err := svc.Create(ctx, creator.ID, "Hiking", nil, nil, []string{friendA.ID})
	require.NoError(t, err)
	notifier.invitesReceived = nil

	require.NoError(t, svc.InviteUsers(ctx, creator.ID, pocket.ID, []string{friendA.ID, friendB.ID}))

	// friendA was already invited; only friendB gets a fresh notification
	assert.Equal(t, []string{friendB.ID}, notifier.invitesReceived)
}

// ============================================
// InviteViaLink
// ============================================

func TestInviteViaLink(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	visitor := store.addUser("visitor")

	pocket, err := svc.Create(ctx, creator.ID, "Open house", nil, nil, nil)
	require.NoError(t, err)

	joined, err := svc.InviteViaLink(ctx, visitor.ID, pocket.PocketKey)
	require.NoError(t, err)
	assert.Equal(t, pocket.ID, joined.ID)

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, visitor.ID, pending[0].UserID)
}

func TestInviteViaLinkRepeatedClicksDoNotPileUp(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	visitor := store.addUser("visitor")

	pocket, err := svc.Create(ctx, creator.ID, "Open house", nil, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.InviteViaLink(ctx, visitor.ID, pocket.PocketKey)
		require.NoError(t, err)
	}

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestInviteViaLinkNotifiesOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	notifier := &spyNotifier{}
	svc := newTestPocketServiceWith(store, &fakeMembershipRepo{store: store}, notifier)

	creator := store.addUser("creator")
	visitor := store.addUser("visitor")

	pocket, err := svc.Create(ctx, creator.ID, "Open house", nil, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.InviteViaLink(ctx, visitor.ID, pocket.PocketKey)
		require.NoError(t, err)
	}

	// Only the click that created the invitation notifies the visitor
	assert.Equal(t, []string{visitor.ID}, notifier.invitesReceived)
}

func TestInviteViaLinkUnknownKey(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	visitor := store.addUser("visitor")

	_, err := svc.InviteViaLink(ctx, visitor.ID, "bogus-key")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// AcceptInvitation
// ============================================

func TestAcceptInvitation(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee := store.addUser("invitee")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{invitee.ID})
	require.NoError(t, err)

	require.NoError(t, svc.AcceptInvitation(ctx, invitee.ID, pocket.ID))

	members, err := svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	// Accepting twice is a no-op
	require.NoError(t, svc.AcceptInvitation(ctx, invitee.ID, pocket.ID))

	members, err = svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestAcceptInvitationWithoutInvite(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	outsider := store.addUser("outsider")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, nil)
	require.NoError(t, err)

	err = svc.AcceptInvitation(ctx, outsider.ID, pocket.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// CancelInvitation
// ============================================

func TestCancelInvitationByActiveMember(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee := store.addUser("invitee")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{invitee.ID})
	require.NoError(t, err)

	require.NoError(t, svc.CancelInvitation(ctx, creator.ID, pocket.ID, invitee.ID))

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCancelInvitationByNonMemberIsSilentNoop(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee := store.addUser("invitee")
	outsider := store.addUser("outsider")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{invitee.ID})
	require.NoError(t, err)

	// Succeeds without touching the invitation
	require.NoError(t, svc.CancelInvitation(ctx, outsider.ID, pocket.ID, invitee.ID))

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCancelInvitationByPendingInviteeIsSilentNoop(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee1 := store.addUser("invitee1")
	invitee2 := store.addUser("invitee2")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{invitee1.ID, invitee2.ID})
	require.NoError(t, err)

	// A pending invitee is not yet a member
	require.NoError(t, svc.CancelInvitation(ctx, invitee1.ID, pocket.ID, invitee2.ID))

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestCancelInvitationTargets(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	outsider := store.addUser("outsider")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, nil)
	require.NoError(t, err)

	err = svc.CancelInvitation(ctx, creator.ID, pocket.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.CancelInvitation(ctx, creator.ID, pocket.ID, creator.ID)
	assert.ErrorIs(t, err, ErrMasterProtected)

	err = svc.CancelInvitation(ctx, creator.ID, "no-such-pocket", outsider.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// BanUser
// ============================================

func TestBanUserByMaster(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	member := store.addUser("member")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{member.ID})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvitation(ctx, member.ID, pocket.ID))

	require.NoError(t, svc.BanUser(ctx, creator.ID, pocket.ID, member.ID))

	members, err := svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestBanUserByNonMasterIsSilentNoop(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	member := store.addUser("member")
	other := store.addUser("other")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{member.ID, other.ID})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvitation(ctx, member.ID, pocket.ID))
	require.NoError(t, svc.AcceptInvitation(ctx, other.ID, pocket.ID))

	// An active member who is not the master cannot ban
	require.NoError(t, svc.BanUser(ctx, member.ID, pocket.ID, other.ID))

	members, err := svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestBanUserByNonMasterDoesNotRevealMemberships(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	member := store.addUser("member")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{member.ID})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvitation(ctx, member.ID, pocket.ID))

	// A non-master gets the same silent success for a stranger as for a
	// member, so the response never betrays who belongs to the pocket.
	require.NoError(t, svc.BanUser(ctx, member.ID, pocket.ID, "no-such-user"))
	require.NoError(t, svc.BanUser(ctx, member.ID, pocket.ID, creator.ID))
}

func TestBanMasterIsRejected(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	member := store.addUser("member")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{member.ID})
	require.NoError(t, err)

	err = svc.BanUser(ctx, creator.ID, pocket.ID, creator.ID)
	assert.ErrorIs(t, err, ErrMasterProtected)
}

func TestBanPendingInvitee(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee := store.addUser("invitee")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{invitee.ID})
	require.NoError(t, err)

	// Ban removes memberships in any state
	require.NoError(t, svc.BanUser(ctx, creator.ID, pocket.ID, invitee.ID))

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// ============================================
// Leave
// ============================================

func TestMasterCannotLeaveWhileOthersRemain(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee := store.addUser("invitee")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{invitee.ID})
	require.NoError(t, err)

	// A pending membership still counts toward pocket size
	err = svc.Leave(ctx, creator.ID, pocket.ID)
	assert.ErrorIs(t, err, ErrMasterCannotLeave)

	members, err := svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestSoleMasterLeavingDeletesPocket(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")

	pocket, err := svc.Create(ctx, creator.ID, "Solo", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, creator.ID, pocket.ID))

	assert.Empty(t, store.pockets)
	assert.Empty(t, store.memberships)

	// The retired invite key no longer resolves
	_, err = svc.ResolveInviteKey(ctx, pocket.PocketKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegularMemberLeaves(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	member := store.addUser("member")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{member.ID})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvitation(ctx, member.ID, pocket.ID))

	require.NoError(t, svc.Leave(ctx, member.ID, pocket.ID))

	members, err := svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
	assert.Contains(t, store.pockets, pocket.ID)
}

func TestLeaveWithoutMembership(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	outsider := store.addUser("outsider")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, nil)
	require.NoError(t, err)

	err = svc.Leave(ctx, outsider.ID, pocket.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

// ============================================
// DelegateMaster
// ============================================

func TestDelegateMaster(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	member := store.addUser("member")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{member.ID})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvitation(ctx, member.ID, pocket.ID))

	require.NoError(t, svc.DelegateMaster(ctx, creator.ID, pocket.ID, member.ID))

	assert.Equal(t, member.ID, store.pockets[pocket.ID].MasterID)

	// Both memberships keep their state
	members, err := svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestDelegateMasterByNonMasterIsSilentNoop(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	member := store.addUser("member")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{member.ID})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvitation(ctx, member.ID, pocket.ID))

	require.NoError(t, svc.DelegateMaster(ctx, member.ID, pocket.ID, member.ID))

	assert.Equal(t, creator.ID, store.pockets[pocket.ID].MasterID)
}

func TestDelegateMasterToPendingInvitee(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee := store.addUser("invitee")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{invitee.ID})
	require.NoError(t, err)

	err = svc.DelegateMaster(ctx, creator.ID, pocket.ID, invitee.ID)
	assert.ErrorIs(t, err, ErrNotMember)
	assert.Equal(t, creator.ID, store.pockets[pocket.ID].MasterID)
}

func TestDelegateMasterToOutsider(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	outsider := store.addUser("outsider")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, nil)
	require.NoError(t, err)

	err = svc.DelegateMaster(ctx, creator.ID, pocket.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

// ============================================
// Update
// ============================================

func TestUpdatePocketIsMasterOnly(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	member := store.addUser("member")

	pocket, err := svc.Create(ctx, creator.ID, "Old name", nil, nil, []string{member.ID})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvitation(ctx, member.ID, pocket.ID))

	newName := "New name"
	_, err = svc.Update(ctx, member.ID, pocket.ID, &newName, nil, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, creator.ID, pocket.ID, &newName, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "New name", updated.Name)
}

// ============================================
// Full lifecycle
// ============================================

func TestFullMembershipLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	u1 := store.addUser("u1")
	u2 := store.addUser("u2")
	u3 := store.addUser("u3")

	// u1 creates a pocket inviting u2 and u3
	pocket, err := svc.Create(ctx, u1.ID, "Weekend crew", nil, nil, []string{u2.ID, u3.ID})
	require.NoError(t, err)

	// u2 accepts, u3 stays pending
	require.NoError(t, svc.AcceptInvitation(ctx, u2.ID, pocket.ID))

	members, err := svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	// u1 is master and cannot leave yet
	assert.ErrorIs(t, svc.Leave(ctx, u1.ID, pocket.ID), ErrMasterCannotLeave)

	// u1 bans u3 (still pending)
	require.NoError(t, svc.BanUser(ctx, u1.ID, pocket.ID, u3.ID))

	pending, err := svc.ListPendingInvitees(ctx, pocket.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// u1 delegates mastership to u2, then leaves
	require.NoError(t, svc.DelegateMaster(ctx, u1.ID, pocket.ID, u2.ID))
	require.NoError(t, svc.Leave(ctx, u1.ID, pocket.ID))

	members, err = svc.ListJoinedUsers(ctx, pocket.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, u2.ID, members[0].UserID)

	// u2 is now the sole member; leaving deletes the pocket
	require.NoError(t, svc.Leave(ctx, u2.ID, pocket.ID))
	assert.Empty(t, store.pockets)

	_, err = svc.ResolveInviteKey(ctx, pocket.PocketKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// Queries
// ============================================

func TestListByUser(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	u1 := store.addUser("u1")
	u2 := store.addUser("u2")

	_, err := svc.Create(ctx, u1.ID, "First", nil, nil, []string{u2.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, u2.ID, "Second", nil, nil, nil)
	require.NoError(t, err)

	pockets, err := svc.ListByUser(ctx, u2.ID)
	require.NoError(t, err)
	assert.Len(t, pockets, 2)

	pockets, err = svc.ListByUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.Len(t, pockets, 1)
}

func TestGetByIDIncludesMembers(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestPocketService(store)

	creator := store.addUser("creator")
	invitee := store.addUser("invitee")

	pocket, err := svc.Create(ctx, creator.ID, "Club", nil, nil, []string{invitee.ID})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, creator.ID, pocket.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 2)

	_, err = svc.GetByID(ctx, creator.ID, "no-such-pocket")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInviteLink(t *testing.T) {
	store := newFakeStore()
	svc := newTestPocketService(store)

	pocket := &repository.Pocket{PocketKey: "abc-123"}
	assert.Equal(t, "https://app.example.com/invite/abc-123", svc.InviteLink(pocket))
}
