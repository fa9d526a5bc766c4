package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GroupRepository defines group persistence.
type GroupRepository interface {
	// GetByID retrieves a group by its 16-bit identifier.
	// Returns ErrGroupNotFound if the group does not exist.
	GetByID(ctx context.Context, id uint16) (*Group, error)

	// List retrieves all groups.
	List(ctx context.Context) ([]Group, error)

	// Create inserts a new group.
	// Returns ErrGroupExists if the id is already stored.
	Create(ctx context.Context, g *Group) error

	// Update rewrites an existing group record.
	// Returns ErrGroupNotFound if the group does not exist.
	Update(ctx context.Context, g *Group) error

	// Delete removes a group.
	// Returns ErrGroupNotFound if the group does not exist.
	Delete(ctx context.Context, id uint16) error
}

// SQLiteGroupRepository implements GroupRepository using SQLite.
type SQLiteGroupRepository struct {
	db *sql.DB
}

// NewSQLiteGroupRepository creates a SQLite-backed group repository.
func NewSQLiteGroupRepository(db *sql.DB) *SQLiteGroupRepository {
	return &SQLiteGroupRepository{db: db}
}

// GetByID retrieves a group by its identifier.
func (r *SQLiteGroupRepository) GetByID(ctx context.Context, id uint16) (*Group, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT group_id, members, created_at, updated_at FROM groups WHERE group_id = ?",
		int64(id),
	)

	g, err := scanGroupRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("querying group: %w", err)
	}
	return g, nil
}

// List retrieves all groups ordered by id.
func (r *SQLiteGroupRepository) List(ctx context.Context) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT group_id, members, created_at, updated_at FROM groups ORDER BY group_id")
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		g, err := scanGroupRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating groups: %w", err)
	}
	return groups, nil
}

// Create inserts a new group.
func (r *SQLiteGroupRepository) Create(ctx context.Context, g *Group) error {
	membersJSON, err := marshalMembers(g.Members)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO groups (group_id, members, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		int64(g.ID),
		membersJSON,
		g.CreatedAt.Format(time.RFC3339),
		g.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrGroupExists
		}
		return fmt.Errorf("inserting group: %w", err)
	}

	return nil
}

// Update rewrites an existing group record.
func (r *SQLiteGroupRepository) Update(ctx context.Context, g *Group) error {
	membersJSON, err := marshalMembers(g.Members)
	if err != nil {
		return err
	}

	g.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE groups SET members = ?, updated_at = ? WHERE group_id = ?`,
		membersJSON,
		g.UpdatedAt.Format(time.RFC3339),
		int64(g.ID),
	)
	if err != nil {
		return fmt.Errorf("updating group: %w", err)
	}

	return requireRowAffected(result, ErrGroupNotFound)
}

// Delete removes a group.
func (r *SQLiteGroupRepository) Delete(ctx context.Context, id uint16) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM groups WHERE group_id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	return requireRowAffected(result, ErrGroupNotFound)
}

func scanGroupRow(scanner rowScanner) (*Group, error) {
	var g Group
	var id int64
	var membersJSON string
	var createdAt, updatedAt string

	if err := scanner.Scan(&id, &membersJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	g.ID = uint16(id)

	if err := json.Unmarshal([]byte(membersJSON), &g.Members); err != nil {
		return nil, fmt.Errorf("unmarshalling members: %w", err)
	}

	var parseErr error
	g.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	g.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &g, nil
}

func marshalMembers(members []GroupMember) (string, error) {
	if members == nil {
		members = []GroupMember{}
	}
	b, err := json.Marshal(members)
	if err != nil {
		return "", fmt.Errorf("marshalling members: %w", err)
	}
	return string(b), nil
}
