package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alnkravchenko/tracking-bot/internal/model"
)

// CreatePerson creates a person with an explicit ID (the chat account ID).
// An empty handle is stored as NULL so the partial unique index ignores it.
func CreatePerson(ctx context.Context, db *sql.DB, id int64, name, handle, role string) (*model.Person, error) {
	var h any
	if handle != "" {
		h = handle
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO people (id, name, handle, role) VALUES (?, ?, ?, ?)`,
		id, name, h, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating person: %w", err)
	}

	return GetPerson(ctx, db, id)
}

// GetPerson returns a person by ID.
func GetPerson(ctx context.Context, db *sql.DB, id int64) (*model.Person, error) {
	p := &model.Person{}
	var handle sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, handle, role, created_at FROM people WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &handle, &p.Role, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting person: %w", err)
	}
	p.Handle = handle.String
	return p, nil
}

// GetPersonByHandle returns a person by handle.
func GetPersonByHandle(ctx context.Context, db *sql.DB, handle string) (*model.Person, error) {
	p := &model.Person{}
	var h sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, handle, role, created_at FROM people WHERE handle = ?`, handle,
	).Scan(&p.ID, &p.Name, &h, &p.Role, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting person by handle: %w", err)
	}
	p.Handle = h.String
	return p, nil
}

// ListPeople returns all people ordered by ID.
func ListPeople(ctx context.Context, db *sql.DB) ([]model.Person, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, handle, role, created_at FROM people ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing people: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// ListAdmins returns every person with the admin role, used for
// confirmation fan-out.
func ListAdmins(ctx context.Context, db *sql.DB) ([]model.Person, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, handle, role, created_at FROM people WHERE role = ? ORDER BY id`,
		model.RoleAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// UpdatePersonRole sets a person's role.
func UpdatePersonRole(ctx context.Context, db *sql.DB, id int64, role string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE people SET role = ? WHERE id = ?`, role, id,
	)
	if err != nil {
		return fmt.Errorf("updating person role: %w", err)
	}
	return nil
}

func scanPeople(rows *sql.Rows) ([]model.Person, error) {
	var people []model.Person
	for rows.Next() {
		var p model.Person
		var handle sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &handle, &p.Role, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		p.Handle = handle.String
		people = append(people, p)
	}
	return people, rows.Err()
}
