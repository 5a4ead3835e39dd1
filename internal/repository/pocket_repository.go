package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pocket is a group of users sharing pins and photos. MasterID points at
// the single administrative owner; PocketKey is the opaque token used for
// link-based invitations.
type Pocket struct {
	ID          string
	Name        string
	Description *string
	ImageURL    *string
	PocketKey   string
	MasterID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Members     []*Membership
}

type PocketRepository interface {
	CreateWithMembers(ctx context.Context, pocket *Pocket, invitedUserIDs []string) error
	FindByID(ctx context.Context, id string) (*Pocket, error)
	FindByKey(ctx context.Context, pocketKey string) (*Pocket, error)
	FindByUserID(ctx context.Context, userID string) ([]*Pocket, error)
	Update(ctx context.Context, pocket *Pocket) error
	UpdateMaster(ctx context.Context, pocketID, userID string) error
}

type pgPocketRepository struct {
	pool *pgxpool.Pool
}

func NewPocketRepository(pool *pgxpool.Pool) PocketRepository {
	return &pgPocketRepository{pool: pool}
}

// CreateWithMembers inserts the pocket, the master's activated membership
// and a pending membership per invited user in one transaction, so a
// half-created pocket is never observable.
func (r *pgPocketRepository) CreateWithMembers(ctx context.Context, pocket *Pocket, invitedUserIDs []string) error {
	pocket.PocketKey = uuid.New().String()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO pockets (name, description, image_url, pocket_key, master_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		pocket.Name, pocket.Description, pocket.ImageURL, pocket.PocketKey, pocket.MasterID,
	).Scan(&pocket.ID, &pocket.CreatedAt, &pocket.UpdatedAt); err != nil {
		return err
	}

	memberQuery := `
		INSERT INTO pocket_members (pocket_id, user_id, activated)
		VALUES ($1, $2, $3)
		ON CONFLICT (pocket_id, user_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, memberQuery, pocket.ID, pocket.MasterID, true); err != nil {
		return err
	}
	for _, userID := range invitedUserIDs {
		if _, err := tx.Exec(ctx, memberQuery, pocket.ID, userID, false); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *pgPocketRepository) FindByID(ctx context.Context, id string) (*Pocket, error) {
	query := `
		SELECT id, name, description, image_url, pocket_key, master_id, created_at, updated_at
		FROM pockets WHERE id = $1
	`
	pocket := &Pocket{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&pocket.ID, &pocket.Name, &pocket.Description, &pocket.ImageURL,
		&pocket.PocketKey, &pocket.MasterID, &pocket.CreatedAt, &pocket.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pocket, nil
}

func (r *pgPocketRepository) FindByKey(ctx context.Context, pocketKey string) (*Pocket, error) {
	query := `
		SELECT id, name, description, image_url, pocket_key, master_id, created_at, updated_at
		FROM pockets WHERE pocket_key = $1
	`
	pocket := &Pocket{}
	err := r.pool.QueryRow(ctx, query, pocketKey).Scan(
		&pocket.ID, &pocket.Name, &pocket.Description, &pocket.ImageURL,
		&pocket.PocketKey, &pocket.MasterID, &pocket.CreatedAt, &pocket.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pocket, nil
}

func (r *pgPocketRepository) FindByUserID(ctx context.Context, userID string) ([]*Pocket, error) {
	query := `
		SELECT p.id, p.name, p.description, p.image_url, p.pocket_key, p.master_id, p.created_at, p.updated_at
		FROM pockets p
		INNER JOIN pocket_members pm ON p.id = pm.pocket_id
		WHERE pm.user_id = $1
		ORDER BY p.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pockets []*Pocket
	for rows.Next() {
		pocket := &Pocket{}
		if err := rows.Scan(
			&pocket.ID, &pocket.Name, &pocket.Description, &pocket.ImageURL,
			&pocket.PocketKey, &pocket.MasterID, &pocket.CreatedAt, &pocket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		pockets = append(pockets, pocket)
	}
	return pockets, nil
}

func (r *pgPocketRepository) Update(ctx context.Context, pocket *Pocket) error {
	query := `
		UPDATE pockets SET name = $2, description = $3, image_url = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, pocket.ID, pocket.Name, pocket.Description, pocket.ImageURL)
	return err
}

func (r *pgPocketRepository) UpdateMaster(ctx context.Context, pocketID, userID string) error {
	query := `UPDATE pockets SET master_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, pocketID, userID)
	return err
}
