package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alnkravchenko/tracking-bot/internal/model"
)

// CreateEquipment registers a new equipment item held by holderID.
func CreateEquipment(ctx context.Context, db *sql.DB, categoryID int64, name, description string, holderID int64) (*model.Equipment, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO equipment (category_id, name, description, holder_id) VALUES (?, ?, ?, ?)`,
		categoryID, name, description, holderID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating equipment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting equipment id: %w", err)
	}

	return GetEquipment(ctx, db, id)
}

// GetEquipment returns an equipment item by ID with joined names.
func GetEquipment(ctx context.Context, db *sql.DB, id int64) (*model.Equipment, error) {
	e := &model.Equipment{}
	var description sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT e.id, e.category_id, e.name, e.description, e.holder_id,
		        e.created_at, e.updated_at,
		        c.name AS category_name, p.name AS holder_name
		 FROM equipment e
		 JOIN categories c ON c.id = e.category_id
		 JOIN people p ON p.id = e.holder_id
		 WHERE e.id = ?`, id,
	).Scan(&e.ID, &e.CategoryID, &e.Name, &description, &e.HolderID,
		&e.CreatedAt, &e.UpdatedAt, &e.CategoryName, &e.HolderName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting equipment: %w", err)
	}
	e.Description = description.String
	return e, nil
}

// ListEquipment returns equipment, optionally filtered by category or holder.
func ListEquipment(ctx context.Context, db *sql.DB, categoryID, holderID int64) ([]model.Equipment, error) {
	query := `SELECT e.id, e.category_id, e.name, e.description, e.holder_id,
	                 e.created_at, e.updated_at,
	                 c.name AS category_name, p.name AS holder_name
	          FROM equipment e
	          JOIN categories c ON c.id = e.category_id
	          JOIN people p ON p.id = e.holder_id
	          WHERE 1=1`
	var args []any

	if categoryID > 0 {
		query += ` AND e.category_id = ?`
		args = append(args, categoryID)
	}
	if holderID > 0 {
		query += ` AND e.holder_id = ?`
		args = append(args, holderID)
	}

	query += ` ORDER BY e.name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	defer rows.Close()

	var items []model.Equipment
	for rows.Next() {
		var e model.Equipment
		var description sql.NullString
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Name, &description, &e.HolderID,
			&e.CreatedAt, &e.UpdatedAt, &e.CategoryName, &e.HolderName); err != nil {
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		e.Description = description.String
		items = append(items, e)
	}
	return items, rows.Err()
}

// UpdateEquipment updates an item's metadata. The holder is not touched here;
// custody changes only flow through transfer commits.
func UpdateEquipment(ctx context.Context, db *sql.DB, id, categoryID int64, name, description string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE equipment SET category_id = ?, name = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		categoryID, name, description, id,
	)
	if err != nil {
		return fmt.Errorf("updating equipment: %w", err)
	}
	return nil
}

// DeleteEquipment removes an item from the registry. Items with transfer or
// history rows cannot be deleted; the foreign keys surface as ErrReferenced.
func DeleteEquipment(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM equipment WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return fmt.Errorf("deleting equipment: %w", err)
	}
	return nil
}
