package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Membership links a user to a pocket. Activated is false while the
// invitation has not been accepted yet.
type Membership struct {
	ID        string
	PocketID  string
	UserID    string
	Activated bool
	CreatedAt time.Time
	User      *User
}

// MembershipRepository defines membership data operations.
// The UNIQUE(pocket_id, user_id) constraint is the authoritative guard
// against duplicate memberships; inserts treat conflicts as no-ops.
type MembershipRepository interface {
	Add(ctx context.Context, member *Membership) (bool, error)
	AddBatch(ctx context.Context, pocketID string, userIDs []string, activated bool) error
	Find(ctx context.Context, pocketID, userID string) (*Membership, error)
	FindByPocket(ctx context.Context, pocketID string) ([]*Membership, error)
	FindActiveByPocket(ctx context.Context, pocketID string) ([]*Membership, error)
	FindPendingByPocket(ctx context.Context, pocketID string) ([]*Membership, error)
	CountByPocket(ctx context.Context, pocketID string) (int, error)
	Activate(ctx context.Context, pocketID, userID string) error
	RemoveAndCollapse(ctx context.Context, pocketID, userID string) (bool, error)
}

type pgMembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &pgMembershipRepository{pool: pool}
}

// Add inserts a membership unless one already exists for the pair.
// Returns true when a new row was created.
func (r *pgMembershipRepository) Add(ctx context.Context, member *Membership) (bool, error) {
	query := `
		INSERT INTO pocket_members (pocket_id, user_id, activated)
		VALUES ($1, $2, $3)
		ON CONFLICT (pocket_id, user_id) DO NOTHING
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, member.PocketID, member.UserID, member.Activated).
		Scan(&member.ID, &member.CreatedAt)
	if err == pgx.ErrNoRows {
		// Already a member, that's fine
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *pgMembershipRepository) AddBatch(ctx context.Context, pocketID string, userIDs []string, activated bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO pocket_members (pocket_id, user_id, activated)
		VALUES ($1, $2, $3)
		ON CONFLICT (pocket_id, user_id) DO NOTHING
	`
	for _, userID := range userIDs {
		if _, err := tx.Exec(ctx, query, pocketID, userID, activated); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *pgMembershipRepository) Find(ctx context.Context, pocketID, userID string) (*Membership, error) {
	query := `
		SELECT id, pocket_id, user_id, activated, created_at
		FROM pocket_members WHERE pocket_id = $1 AND user_id = $2
	`
	member := &Membership{}
	err := r.pool.QueryRow(ctx, query, pocketID, userID).Scan(
		&member.ID, &member.PocketID, &member.UserID, &member.Activated, &member.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (r *pgMembershipRepository) FindByPocket(ctx context.Context, pocketID string) ([]*Membership, error) {
	query := `
		SELECT pm.id, pm.pocket_id, pm.user_id, pm.activated, pm.created_at,
		       u.id, u.email, u.nickname, u.profile_image
		FROM pocket_members pm
		INNER JOIN users u ON pm.user_id = u.id
		WHERE pm.pocket_id = $1
		ORDER BY pm.created_at
	`
	return r.queryMembers(ctx, query, pocketID)
}

func (r *pgMembershipRepository) FindActiveByPocket(ctx context.Context, pocketID string) ([]*Membership, error) {
	query := `
		SELECT pm.id, pm.pocket_id, pm.user_id, pm.activated, pm.created_at,
		       u.id, u.email, u.nickname, u.profile_image
		FROM pocket_members pm
		INNER JOIN users u ON pm.user_id = u.id
		WHERE pm.pocket_id = $1 AND pm.activated = TRUE
		ORDER BY pm.created_at
	`
	return r.queryMembers(ctx, query, pocketID)
}

func (r *pgMembershipRepository) FindPendingByPocket(ctx context.Context, pocketID string) ([]*Membership, error) {
	query := `
		SELECT pm.id, pm.pocket_id, pm.user_id, pm.activated, pm.created_at,
		       u.id, u.email, u.nickname, u.profile_image
		FROM pocket_members pm
		INNER JOIN users u ON pm.user_id = u.id
		WHERE pm.pocket_id = $1 AND pm.activated = FALSE
		ORDER BY pm.created_at
	`
	return r.queryMembers(ctx, query, pocketID)
}

func (r *pgMembershipRepository) queryMembers(ctx context.Context, query, pocketID string) ([]*Membership, error) {
	rows, err := r.pool.Query(ctx, query, pocketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		member := &Membership{User: &User{}}
		if err := rows.Scan(
			&member.ID, &member.PocketID, &member.UserID, &member.Activated, &member.CreatedAt,
			&member.User.ID, &member.User.Email, &member.User.Nickname, &member.User.ProfileImage,
		); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, nil
}

func (r *pgMembershipRepository) CountByPocket(ctx context.Context, pocketID string) (int, error) {
	query := `SELECT COUNT(*) FROM pocket_members WHERE pocket_id = $1`
	var count int
	err := r.pool.QueryRow(ctx, query, pocketID).Scan(&count)
	return count, err
}

func (r *pgMembershipRepository) Activate(ctx context.Context, pocketID, userID string) error {
	query := `UPDATE pocket_members SET activated = TRUE WHERE pocket_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, pocketID, userID)
	return err
}

// RemoveAndCollapse deletes a membership and, when it was the last one,
// deletes the pocket itself in the same transaction. Returns true when
// the pocket was deleted.
func (r *pgMembershipRepository) RemoveAndCollapse(ctx context.Context, pocketID, userID string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM pocket_members WHERE pocket_id = $1 AND user_id = $2`,
		pocketID, userID,
	); err != nil {
		return false, err
	}

	var remaining int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM pocket_members WHERE pocket_id = $1`,
		pocketID,
	).Scan(&remaining); err != nil {
		return false, err
	}

	pocketDeleted := false
	if remaining == 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM pockets WHERE id = $1`, pocketID); err != nil {
			return false, err
		}
		pocketDeleted = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return pocketDeleted, nil
}
