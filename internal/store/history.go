package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alnkravchenko/tracking-bot/internal/model"
)

// AppendHistory adds a custody record. History is append-only; there are no
// update or delete paths.
func AppendHistory(ctx context.Context, db *sql.DB, equipmentID, holderID int64, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO history (equipment_id, holder_id, recorded_at) VALUES (?, ?, ?)`,
		equipmentID, holderID, at,
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// HistoryForEquipment returns an item's custody records, newest first. The
// first entry answers "who holds this and since when".
func HistoryForEquipment(ctx context.Context, db *sql.DB, equipmentID int64) ([]model.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		historyQuery+` WHERE h.equipment_id = ? ORDER BY h.id DESC`, equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting equipment history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// HistoryForHolder returns custody records for a holder, newest first.
func HistoryForHolder(ctx context.Context, db *sql.DB, holderID int64) ([]model.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		historyQuery+` WHERE h.holder_id = ? ORDER BY h.id DESC`, holderID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting holder history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// HistoryForPeriod returns custody records between two dates, inclusive at
// both ends, with day granularity.
func HistoryForPeriod(ctx context.Context, db *sql.DB, from, to time.Time) ([]model.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		historyQuery+` WHERE date(h.recorded_at) >= date(?) AND date(h.recorded_at) <= date(?)
		 ORDER BY h.id DESC`,
		from.Format("2006-01-02"), to.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("getting period history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// LatestHolderSince returns the timestamp of the newest history entry for an
// equipment item, or nil if the item has no history yet.
func LatestHolderSince(ctx context.Context, db *sql.DB, equipmentID int64) (*time.Time, error) {
	var at time.Time
	err := db.QueryRowContext(ctx,
		`SELECT recorded_at FROM history WHERE equipment_id = ? ORDER BY id DESC LIMIT 1`,
		equipmentID,
	).Scan(&at)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest history entry: %w", err)
	}
	return &at, nil
}

const historyQuery = `SELECT h.id, h.equipment_id, h.holder_id, h.recorded_at,
       e.name AS equipment_name, p.name AS holder_name
FROM history h
JOIN equipment e ON e.id = h.equipment_id
JOIN people p ON p.id = h.holder_id`

func scanHistory(rows *sql.Rows) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	for rows.Next() {
		var h model.HistoryEntry
		if err := rows.Scan(&h.ID, &h.EquipmentID, &h.HolderID, &h.RecordedAt,
			&h.EquipmentName, &h.HolderName); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
