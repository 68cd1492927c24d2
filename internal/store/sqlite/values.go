package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/store"
)

// valueColumns must match the scan order in scanValue.
const valueColumns = `id, user_id, name, importance, color, description, kind, active, created_at, updated_at`

func scanValue(scanner rowScanner) (domain.Value, error) {
	var (
		v                    domain.Value
		kind                 string
		active               int
		createdAt, updatedAt string
	)
	err := scanner.Scan(&v.ID, &v.UserID, &v.Name, &v.Importance, &v.Color, &v.Description,
		&kind, &active, &createdAt, &updatedAt)
	if err != nil {
		return v, err
	}

	v.Kind = domain.ValueKind(kind)
	v.Active = active != 0
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return v, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return v, err
	}
	return v, nil
}

// CreateValue inserts a new value.
// Returns store.ErrAlreadyExists if the ID is taken.
func (s *Store) CreateValue(ctx context.Context, v *domain.Value) error {
	kind := v.Kind
	if kind == "" {
		kind = domain.KindValue
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO "values" (`+valueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Name, v.Importance, v.Color, v.Description,
		string(kind), boolToInt(v.Active), formatTime(v.CreatedAt), formatTime(v.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert value: %w", err)
	}
	return nil
}

// GetValue retrieves one of the user's values.
// Returns store.ErrNotFound if it does not exist or belongs to someone else.
func (s *Store) GetValue(ctx context.Context, userID, id string) (*domain.Value, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+valueColumns+` FROM "values" WHERE id = ? AND user_id = ?`, id, userID)

	v, err := scanValue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListValues returns the user's values of one kind, oldest first.
// An empty kind lists every kind.
func (s *Store) ListValues(ctx context.Context, userID string, kind domain.ValueKind, activeOnly bool) ([]domain.Value, error) {
	query := `SELECT ` + valueColumns + ` FROM "values" WHERE user_id = ?`
	args := []any{userID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	defer rows.Close()

	values := []domain.Value{}
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// UpdateValue overwrites the mutable fields of a value.
// Returns store.ErrNotFound if it does not exist for v.UserID.
func (s *Store) UpdateValue(ctx context.Context, v *domain.Value) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE "values"
		SET name = ?, importance = ?, color = ?, description = ?, kind = ?, active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		v.Name, v.Importance, v.Color, v.Description, string(v.Kind), boolToInt(v.Active),
		formatTime(v.UpdatedAt), v.ID, v.UserID,
	)
	if err != nil {
		return fmt.Errorf("update value: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteValue removes a value and, by cascade, its activities.
// Returns store.ErrNotFound if it does not exist for userID.
func (s *Store) DeleteValue(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM "values" WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete value: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
