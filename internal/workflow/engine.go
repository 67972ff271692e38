package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alnkravchenko/tracking-bot/internal/model"
	"github.com/alnkravchenko/tracking-bot/internal/store"
)

// Engine coordinates the transfer workflow: opening pending transfers,
// resolving whole batches on an admin's decision, and self-authorized
// returns. All custody mutation funnels through transfer commits; nothing
// else writes the equipment holder or the history ledger.
type Engine struct {
	db           *sql.DB
	storehouseID int64
	now          func() time.Time
}

// New creates an engine. storehouseID is the reserved person representing
// "not checked out to anyone".
func New(db *sql.DB, storehouseID int64) *Engine {
	return &Engine{
		db:           db,
		storehouseID: storehouseID,
		now:          time.Now,
	}
}

// StorehouseID returns the sentinel holder id.
func (e *Engine) StorehouseID() int64 {
	return e.storehouseID
}

// Open stages a custody change of one equipment item to the requester. The
// item's current holder is captured at this instant; the registry is not
// mutated. At most one pending transfer may exist per item, so a second open
// for the same item fails with ErrConflictingPending.
func (e *Engine) Open(ctx context.Context, equipmentID, requesterID int64, batchID string) (*model.Transfer, error) {
	requester, err := store.GetPerson(ctx, e.db, requesterID)
	if err != nil {
		return nil, fmt.Errorf("looking up requester: %w", err)
	}
	if requester == nil {
		return nil, ErrPersonNotFound
	}
	if !requester.IsVerified() {
		return nil, ErrNotVerified
	}

	equipment, err := store.GetEquipment(ctx, e.db, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("looking up equipment: %w", err)
	}
	if equipment == nil {
		return nil, ErrEquipmentNotFound
	}

	transfer, err := store.OpenTransfer(ctx, e.db, equipmentID, requesterID, batchID)
	if errors.Is(err, store.ErrPendingExists) {
		return nil, ErrConflictingPending
	}
	if err != nil {
		return nil, fmt.Errorf("opening transfer: %w", err)
	}

	slog.Info("transfer opened", "equipment", equipment.Name,
		"from", transfer.FromHolderID, "to", requesterID, "batch", batchID)
	return transfer, nil
}

// Resolve applies an admin's decision to every pending transfer in a batch.
// The whole batch is claimed atomically, so two admins deciding at the same
// moment cannot split it: exactly one claim transitions the rows and the
// other gets ErrBatchResolved. On approval the registry and ledger writes
// then happen per item, and one item's failure does not block the others.
// On rejection nothing is written to the registry or the ledger.
func (e *Engine) Resolve(ctx context.Context, batchID string, adminID int64, approve bool) (*BatchReport, error) {
	admin, err := store.GetPerson(ctx, e.db, adminID)
	if err != nil {
		return nil, fmt.Errorf("looking up admin: %w", err)
	}
	if admin == nil || !admin.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	status := model.TransferDeleted
	if approve {
		status = model.TransferVerified
	}
	at := e.now()

	claimed, err := store.ClaimBatch(ctx, e.db, batchID, status, at)
	if errors.Is(err, store.ErrNotPending) {
		return nil, ErrBatchResolved
	}
	if err != nil {
		return nil, fmt.Errorf("claiming batch: %w", err)
	}

	report := &BatchReport{BatchID: batchID, Approved: approve}

	for _, t := range claimed {
		result := ItemResult{
			TransferID:    t.ID,
			EquipmentID:   t.EquipmentID,
			EquipmentName: t.EquipmentName,
		}

		if approve {
			if err := store.ApplyTransfer(ctx, e.db, t, at); err != nil {
				slog.Error("batch item failed", "batch", batchID,
					"transfer", t.ID, "equipment", t.EquipmentName, "error", err)
				result.Err = err.Error()
				report.Failed = append(report.Failed, result)
				continue
			}
		}
		report.Resolved = append(report.Resolved, result)
	}

	slog.Info("batch resolved", "batch", batchID, "admin", admin.Name,
		"approved", approve, "resolved", len(report.Resolved), "failed", len(report.Failed))
	return report, nil
}

// Cancel discards every pending transfer in a batch, for abandoned or
// restarted sessions. Returns the number of transfers discarded.
func (e *Engine) Cancel(ctx context.Context, batchID string) (int, error) {
	claimed, err := store.ClaimBatch(ctx, e.db, batchID, model.TransferDeleted, e.now())
	if errors.Is(err, store.ErrNotPending) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cancelling batch: %w", err)
	}
	return len(claimed), nil
}

// ReturnAll moves every item the holder currently has back to the storehouse.
// Returns are self-authorized: each item's transfer is opened and committed
// immediately without admin confirmation. Any pending transfers still
// addressed to the holder are discarded first, so a finished return leaves
// zero pending transfers for that person.
func (e *Engine) ReturnAll(ctx context.Context, holderID int64) (*BatchReport, error) {
	holder, err := store.GetPerson(ctx, e.db, holderID)
	if err != nil {
		return nil, fmt.Errorf("looking up holder: %w", err)
	}
	if holder == nil {
		return nil, ErrPersonNotFound
	}

	// Drop the holder's own unconfirmed checkouts.
	stale, err := store.PendingForHolder(ctx, e.db, holderID)
	if err != nil {
		return nil, fmt.Errorf("loading pending transfers: %w", err)
	}
	at := e.now()
	for _, t := range stale {
		if err := store.RejectTransfer(ctx, e.db, t.ID, at); err != nil && !errors.Is(err, store.ErrNotPending) {
			return nil, fmt.Errorf("discarding pending transfer %d: %w", t.ID, err)
		}
	}

	held, err := store.ListEquipment(ctx, e.db, 0, holderID)
	if err != nil {
		return nil, fmt.Errorf("listing held equipment: %w", err)
	}

	report := &BatchReport{BatchID: uuid.NewString(), Approved: true}

	for _, eq := range held {
		result := ItemResult{EquipmentID: eq.ID, EquipmentName: eq.Name}

		transfer, err := store.OpenTransfer(ctx, e.db, eq.ID, e.storehouseID, report.BatchID)
		if err != nil {
			if errors.Is(err, store.ErrPendingExists) {
				err = ErrConflictingPending
			}
			result.Err = err.Error()
			report.Failed = append(report.Failed, result)
			continue
		}
		result.TransferID = transfer.ID

		if err := store.CommitTransfer(ctx, e.db, transfer.ID, at); err != nil {
			slog.Error("return commit failed", "holder", holder.Name,
				"equipment", eq.Name, "error", err)
			result.Err = err.Error()
			report.Failed = append(report.Failed, result)
			continue
		}
		report.Resolved = append(report.Resolved, result)
	}

	slog.Info("equipment returned", "holder", holder.Name,
		"returned", len(report.Resolved), "failed", len(report.Failed))
	return report, nil
}

// RegisterEquipment adds a new item to the registry. Only an admin or the
// storehouse itself may be the initial owner; the request is refused
// otherwise with no partial effect.
func (e *Engine) RegisterEquipment(ctx context.Context, categoryID int64, name, description string, ownerID int64) (*model.Equipment, error) {
	owner, err := store.GetPerson(ctx, e.db, ownerID)
	if err != nil {
		return nil, fmt.Errorf("looking up owner: %w", err)
	}
	if owner == nil {
		return nil, ErrPersonNotFound
	}
	if !owner.IsAdmin() && owner.ID != e.storehouseID {
		return nil, ErrNotAuthorized
	}

	category, err := store.GetCategory(ctx, e.db, categoryID)
	if err != nil {
		return nil, fmt.Errorf("looking up category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	equipment, err := store.CreateEquipment(ctx, e.db, categoryID, name, description, ownerID)
	if err != nil {
		return nil, fmt.Errorf("registering equipment: %w", err)
	}

	slog.Info("equipment registered", "equipment", name, "category", category.Name, "owner", owner.Name)
	return equipment, nil
}

// Verify promotes an unverified person to member. Promotion is idempotent:
// verifying a member or an admin changes nothing.
func (e *Engine) Verify(ctx context.Context, personID int64) (*model.Person, error) {
	person, err := store.GetPerson(ctx, e.db, personID)
	if err != nil {
		return nil, fmt.Errorf("looking up person: %w", err)
	}
	if person == nil {
		return nil, ErrPersonNotFound
	}
	if person.IsVerified() {
		return person, nil
	}

	if err := store.UpdatePersonRole(ctx, e.db, personID, model.RoleMember); err != nil {
		return nil, fmt.Errorf("promoting person: %w", err)
	}

	slog.Info("person verified", "person", person.Name, "id", personID)
	return store.GetPerson(ctx, e.db, personID)
}

// Admins lists every admin, used by callers fanning out confirmation prompts.
func (e *Engine) Admins(ctx context.Context) ([]model.Person, error) {
	return store.ListAdmins(ctx, e.db)
}
