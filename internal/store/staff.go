package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alnkravchenko/tracking-bot/internal/model"
)

// CreateStaff creates a console account.
func CreateStaff(ctx context.Context, db *sql.DB, username, passwordHash, role string) (*model.StaffUser, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO staff (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating staff user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting staff user id: %w", err)
	}

	return GetStaff(ctx, db, id)
}

// GetStaff returns a console account by ID.
func GetStaff(ctx context.Context, db *sql.DB, id int64) (*model.StaffUser, error) {
	u := &model.StaffUser{}
	err := db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at, deleted_at
		 FROM staff WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting staff user: %w", err)
	}
	return u, nil
}

// GetStaffByUsername returns a console account by username (including
// soft-deleted for auth checks).
func GetStaffByUsername(ctx context.Context, db *sql.DB, username string) (*model.StaffUser, error) {
	u := &model.StaffUser{}
	err := db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at, deleted_at
		 FROM staff WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting staff user by username: %w", err)
	}
	return u, nil
}

// ListStaff returns all non-deleted console accounts.
func ListStaff(ctx context.Context, db *sql.DB) ([]model.StaffUser, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, username, password_hash, role, created_at, deleted_at
		 FROM staff WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing staff users: %w", err)
	}
	defer rows.Close()

	var users []model.StaffUser
	for rows.Next() {
		var u model.StaffUser
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning staff user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateStaffRole updates a console account's role.
func UpdateStaffRole(ctx context.Context, db *sql.DB, id int64, role string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE staff SET role = ? WHERE id = ? AND deleted_at IS NULL`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating staff role: %w", err)
	}
	return nil
}

// UpdateStaffPassword updates a console account's password hash.
func UpdateStaffPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE staff SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating staff password: %w", err)
	}
	return nil
}

// DeleteStaff soft-deletes a console account.
func DeleteStaff(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE staff SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting staff user: %w", err)
	}
	return nil
}
