package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alnkravchenko/tracking-bot/internal/model"
)

// ErrPendingExists is returned when opening a transfer for equipment that
// already has a pending transfer.
var ErrPendingExists = errors.New("equipment already has a pending transfer")

// ErrNotPending is returned when committing or rejecting a transfer that is
// no longer in the pending state.
var ErrNotPending = errors.New("transfer is not pending")

// ErrReferenced is returned when deleting a row that other rows still
// reference.
var ErrReferenced = errors.New("row is still referenced")

// OpenTransfer stages a custody change for one equipment item. The item's
// current holder is captured as from_holder inside the same transaction that
// inserts the pending row, and the partial unique index guarantees that two
// concurrent opens for the same item cannot both succeed.
func OpenTransfer(ctx context.Context, db *sql.DB, equipmentID, toHolderID int64, batchID string) (*model.Transfer, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var fromHolderID int64
	err = tx.QueryRowContext(ctx,
		`SELECT holder_id FROM equipment WHERE id = ?`, equipmentID,
	).Scan(&fromHolderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("equipment %d not found", equipmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading current holder: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO transfers (equipment_id, from_holder_id, to_holder_id, batch_id, status)
		 VALUES (?, ?, ?, ?, ?)`,
		equipmentID, fromHolderID, toHolderID, batchID, model.TransferPending,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrPendingExists
		}
		return nil, fmt.Errorf("staging transfer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer open: %w", err)
	}

	transferID, _ := result.LastInsertId()
	return GetTransfer(ctx, db, transferID)
}

// CommitTransfer finalizes a pending transfer: the equipment's holder becomes
// the transfer's destination and a history entry is appended, all in one
// transaction. Returns ErrNotPending if the transfer was already resolved, so
// a second commit of the same transfer is a no-op.
func CommitTransfer(ctx context.Context, db *sql.DB, id int64, at time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	t := &model.Transfer{}
	err = tx.QueryRowContext(ctx,
		`SELECT equipment_id, to_holder_id FROM transfers WHERE id = ? AND status = ?`,
		id, model.TransferPending,
	).Scan(&t.EquipmentID, &t.ToHolderID)
	if err == sql.ErrNoRows {
		return ErrNotPending
	}
	if err != nil {
		return fmt.Errorf("reading pending transfer: %w", err)
	}

	// The guarded update is what makes duplicate resolutions harmless: only
	// one commit can observe status = pending.
	result, err := tx.ExecContext(ctx,
		`UPDATE transfers SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		model.TransferVerified, at, id, model.TransferPending,
	)
	if err != nil {
		return fmt.Errorf("marking transfer verified: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotPending
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE equipment SET holder_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.ToHolderID, t.EquipmentID,
	)
	if err != nil {
		return fmt.Errorf("updating equipment holder: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (equipment_id, holder_id, recorded_at) VALUES (?, ?, ?)`,
		t.EquipmentID, t.ToHolderID, at,
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transfer: %w", err)
	}
	return nil
}

// ClaimBatch transitions every pending transfer in a batch to the given
// status and returns the rows it claimed. The read and the guarded update
// run in one transaction, so of two concurrent claims exactly one gets the
// rows and the other gets ErrNotPending. Claiming changes only transfer
// rows; the registry and the ledger are untouched here.
func ClaimBatch(ctx context.Context, db *sql.DB, batchID, status string, at time.Time) ([]model.Transfer, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		transferQuery+` WHERE t.batch_id = ? AND t.status = ? ORDER BY t.id`,
		batchID, model.TransferPending,
	)
	if err != nil {
		return nil, fmt.Errorf("loading batch transfers: %w", err)
	}
	claimed, err := scanTransfers(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, ErrNotPending
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE transfers SET status = ?, resolved_at = ? WHERE batch_id = ? AND status = ?`,
		status, at, batchID, model.TransferPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claiming batch: %w", err)
	}
	if n, _ := result.RowsAffected(); n != int64(len(claimed)) {
		return nil, fmt.Errorf("claimed %d of %d batch transfers", n, len(claimed))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch claim: %w", err)
	}
	return claimed, nil
}

// ApplyTransfer records an already-verified transfer in the registry and the
// ledger: the equipment's holder becomes the transfer's destination and a
// history entry is appended, in one transaction.
func ApplyTransfer(ctx context.Context, db *sql.DB, t model.Transfer, at time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE equipment SET holder_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.ToHolderID, t.EquipmentID,
	)
	if err != nil {
		return fmt.Errorf("updating equipment holder: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (equipment_id, holder_id, recorded_at) VALUES (?, ?, ?)`,
		t.EquipmentID, t.ToHolderID, at,
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("applying transfer: %w", err)
	}
	return nil
}

// RejectTransfer discards a pending transfer without touching equipment or
// history. Returns ErrNotPending if the transfer was already resolved.
func RejectTransfer(ctx context.Context, db *sql.DB, id int64, at time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE transfers SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		model.TransferDeleted, at, id, model.TransferPending,
	)
	if err != nil {
		return fmt.Errorf("rejecting transfer: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}

// GetTransfer returns a transfer by ID with joined names.
func GetTransfer(ctx context.Context, db *sql.DB, id int64) (*model.Transfer, error) {
	rows, err := db.QueryContext(ctx, transferQuery+` WHERE t.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}
	defer rows.Close()

	transfers, err := scanTransfers(rows)
	if err != nil {
		return nil, err
	}
	if len(transfers) == 0 {
		return nil, nil
	}
	return &transfers[0], nil
}

// PendingByBatch returns the still-pending transfers belonging to a batch.
func PendingByBatch(ctx context.Context, db *sql.DB, batchID string) ([]model.Transfer, error) {
	rows, err := db.QueryContext(ctx,
		transferQuery+` WHERE t.batch_id = ? AND t.status = ? ORDER BY t.id`,
		batchID, model.TransferPending,
	)
	if err != nil {
		return nil, fmt.Errorf("listing batch transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// PendingForHolder returns pending transfers destined to the given holder.
func PendingForHolder(ctx context.Context, db *sql.DB, holderID int64) ([]model.Transfer, error) {
	rows, err := db.QueryContext(ctx,
		transferQuery+` WHERE t.to_holder_id = ? AND t.status = ? ORDER BY t.id`,
		holderID, model.TransferPending,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// ListTransfers returns transfers, optionally filtered by equipment, holder
// (either side), status, or batch.
func ListTransfers(ctx context.Context, db *sql.DB, equipmentID, holderID int64, status, batchID string) ([]model.Transfer, error) {
	query := transferQuery + ` WHERE 1=1`
	var args []any

	if equipmentID > 0 {
		query += ` AND t.equipment_id = ?`
		args = append(args, equipmentID)
	}
	if holderID > 0 {
		query += ` AND (t.from_holder_id = ? OR t.to_holder_id = ?)`
		args = append(args, holderID, holderID)
	}
	if status != "" {
		query += ` AND t.status = ?`
		args = append(args, status)
	}
	if batchID != "" {
		query += ` AND t.batch_id = ?`
		args = append(args, batchID)
	}

	query += ` ORDER BY t.created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

const transferQuery = `SELECT t.id, t.equipment_id, t.from_holder_id, t.to_holder_id,
       t.batch_id, t.status, t.created_at, t.resolved_at,
       e.name AS equipment_name, fp.name AS from_holder_name, tp.name AS to_holder_name
FROM transfers t
JOIN equipment e ON e.id = t.equipment_id
JOIN people fp ON fp.id = t.from_holder_id
JOIN people tp ON tp.id = t.to_holder_id`

func scanTransfers(rows *sql.Rows) ([]model.Transfer, error) {
	var transfers []model.Transfer
	for rows.Next() {
		var t model.Transfer
		if err := rows.Scan(&t.ID, &t.EquipmentID, &t.FromHolderID, &t.ToHolderID,
			&t.BatchID, &t.Status, &t.CreatedAt, &t.ResolvedAt,
			&t.EquipmentName, &t.FromHolderName, &t.ToHolderName); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err is a SQLite foreign key error.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
