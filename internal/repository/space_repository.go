package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/leads-portal-api/internal/models"
)

// SpaceRepository persists document spaces and their collaborator sets.
type SpaceRepository struct {
	db *sqlx.DB
}

// NewSpaceRepository constructs a space repository.
func NewSpaceRepository(db *sqlx.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

func memberTable(kind models.MemberKind) (string, error) {
	switch kind {
	case models.MemberKindManager:
		return "space_managers", nil
	case models.MemberKindWriter:
		return "space_writers", nil
	default:
		return "", fmt.Errorf("unknown member kind %q", kind)
	}
}

// FindByID returns a space by id.
func (r *SpaceRepository) FindByID(ctx context.Context, id string) (*models.DocumentSpace, error) {
	const query = `SELECT id, owner_id, created_at FROM document_spaces WHERE id = $1`
	var space models.DocumentSpace
	if err := r.db.GetContext(ctx, &space, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find space: %w", err)
	}
	return &space, nil
}

// FindByOwner returns the space owned by the user.
func (r *SpaceRepository) FindByOwner(ctx context.Context, ownerID string) (*models.DocumentSpace, error) {
	const query = `SELECT id, owner_id, created_at FROM document_spaces WHERE owner_id = $1`
	var space models.DocumentSpace
	if err := r.db.GetContext(ctx, &space, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find space by owner: %w", err)
	}
	return &space, nil
}

// GetOrCreate returns the owner's space, creating it on first use. created reports
// whether a row was inserted.
func (r *SpaceRepository) GetOrCreate(ctx context.Context, ownerID string) (*models.DocumentSpace, bool, error) {
	const insert = `INSERT INTO document_spaces (id, owner_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (owner_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, insert, uuid.NewString(), ownerID, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("create space: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("create space rows affected: %w", err)
	}

	space, err := r.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	return space, affected > 0, nil
}

// Delete removes a space and, by cascade, its files and collaborator sets.
func (r *SpaceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM document_spaces WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete space: %w", err)
	}
	return nil
}

// Membership reports which collaborator sets of the space contain the user.
func (r *SpaceRepository) Membership(ctx context.Context, spaceID, userID string) (models.Membership, error) {
	const query = `SELECT
	EXISTS (SELECT 1 FROM space_managers WHERE space_id = $1 AND user_id = $2) AS manager,
	EXISTS (SELECT 1 FROM space_writers WHERE space_id = $1 AND user_id = $2) AS writer`
	var row struct {
		Manager bool `db:"manager"`
		Writer  bool `db:"writer"`
	}
	if err := r.db.GetContext(ctx, &row, query, spaceID, userID); err != nil {
		return models.Membership{}, fmt.Errorf("load membership: %w", err)
	}
	return models.Membership{Manager: row.Manager, Writer: row.Writer}, nil
}

// ListMembers returns managers and writers of a space.
func (r *SpaceRepository) ListMembers(ctx context.Context, spaceID string) ([]models.SpaceMember, error) {
	const query = `SELECT u.id AS user_id, u.email, u.first_name, u.last_name, 'manager' AS kind
FROM space_managers m JOIN users u ON u.id = m.user_id WHERE m.space_id = $1
UNION ALL
SELECT u.id AS user_id, u.email, u.first_name, u.last_name, 'writer' AS kind
FROM space_writers w JOIN users u ON u.id = w.user_id WHERE w.space_id = $1
ORDER BY kind, email`
	var members []models.SpaceMember
	if err := r.db.SelectContext(ctx, &members, query, spaceID); err != nil {
		return nil, fmt.Errorf("list space members: %w", err)
	}
	return members, nil
}

// ListForMember returns the spaces where the user is a manager or writer.
func (r *SpaceRepository) ListForMember(ctx context.Context, userID string) ([]models.SpaceSummary, error) {
	const query = `SELECT s.id, s.owner_id, o.email AS owner_email, o.first_name AS owner_first_name, o.last_name AS owner_last_name,
	CASE WHEN EXISTS (SELECT 1 FROM space_managers m WHERE m.space_id = s.id AND m.user_id = $1) THEN 'manager' ELSE 'writer' END AS role,
	s.created_at
FROM document_spaces s JOIN users o ON o.id = s.owner_id
WHERE EXISTS (SELECT 1 FROM space_managers m WHERE m.space_id = s.id AND m.user_id = $1)
   OR EXISTS (SELECT 1 FROM space_writers w WHERE w.space_id = s.id AND w.user_id = $1)
ORDER BY s.created_at DESC`
	var spaces []models.SpaceSummary
	if err := r.db.SelectContext(ctx, &spaces, query, userID); err != nil {
		return nil, fmt.Errorf("list member spaces: %w", err)
	}
	return spaces, nil
}

// AddMember inserts the user into a collaborator set. It reports whether the set changed.
func (r *SpaceRepository) AddMember(ctx context.Context, spaceID, userID string, kind models.MemberKind) (bool, error) {
	table, err := memberTable(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (space_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, table)
	res, err := r.db.ExecContext(ctx, query, spaceID, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add %s: %w", kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add %s rows affected: %w", kind, err)
	}
	return affected > 0, nil
}

// RemoveMember deletes the user from a collaborator set. Removing a non member is not an error.
func (r *SpaceRepository) RemoveMember(ctx context.Context, spaceID, userID string, kind models.MemberKind) (bool, error) {
	table, err := memberTable(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE space_id = $1 AND user_id = $2`, table)
	res, err := r.db.ExecContext(ctx, query, spaceID, userID)
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove %s rows affected: %w", kind, err)
	}
	return affected > 0, nil
}
