package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/alnkravchenko/tracking-bot/internal/db"
	"github.com/alnkravchenko/tracking-bot/internal/model"
)

// seedEquipment creates a storehouse, a member, a category and one equipment
// item held by the storehouse. Returns (storehouse, member, equipment).
func seedEquipment(t *testing.T, database *sql.DB) (*model.Person, *model.Person, *model.Equipment) {
	t.Helper()
	ctx := context.Background()

	storehouse, err := CreatePerson(ctx, database, 1, "Storehouse", "", model.RoleAdmin)
	if err != nil {
		t.Fatalf("CreatePerson storehouse: %v", err)
	}
	member, err := CreatePerson(ctx, database, 100, "Alice", "alice", model.RoleMember)
	if err != nil {
		t.Fatalf("CreatePerson member: %v", err)
	}
	cat, err := CreateCategory(ctx, database, "Cameras")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	eq, err := CreateEquipment(ctx, database, cat.ID, "Avermedia LGP", "capture card", storehouse.ID)
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}
	return storehouse, member, eq
}

func TestOpenTransferCapturesHolder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	storehouse, member, eq := seedEquipment(t, database)

	transfer, err := OpenTransfer(ctx, database, eq.ID, member.ID, "batch-1")
	if err != nil {
		t.Fatalf("OpenTransfer: %v", err)
	}
	if transfer.FromHolderID != storehouse.ID {
		t.Errorf("expected from_holder %d, got %d", storehouse.ID, transfer.FromHolderID)
	}
	if transfer.Status != model.TransferPending {
		t.Errorf("expected pending status, got %q", transfer.Status)
	}

	// Opening a transfer must not touch the equipment's holder.
	got, _ := GetEquipment(ctx, database, eq.ID)
	if got.HolderID != storehouse.ID {
		t.Errorf("open mutated holder: got %d, want %d", got.HolderID, storehouse.ID)
	}
}

func TestOpenTransferMutualExclusion(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, member, eq := seedEquipment(t, database)
	other, _ := CreatePerson(ctx, database, 200, "Bob", "bob", model.RoleMember)

	if _, err := OpenTransfer(ctx, database, eq.ID, member.ID, "batch-1"); err != nil {
		t.Fatalf("first OpenTransfer: %v", err)
	}

	_, err := OpenTransfer(ctx, database, eq.ID, other.ID, "batch-2")
	if !errors.Is(err, ErrPendingExists) {
		t.Errorf("expected ErrPendingExists for second open, got %v", err)
	}
}

func TestCommitTransfer(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, member, eq := seedEquipment(t, database)

	transfer, err := OpenTransfer(ctx, database, eq.ID, member.ID, "batch-1")
	if err != nil {
		t.Fatalf("OpenTransfer: %v", err)
	}

	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	if err := CommitTransfer(ctx, database, transfer.ID, at); err != nil {
		t.Fatalf("CommitTransfer: %v", err)
	}

	got, _ := GetEquipment(ctx, database, eq.ID)
	if got.HolderID != member.ID {
		t.Errorf("expected holder %d after commit, got %d", member.ID, got.HolderID)
	}

	entries, _ := HistoryForEquipment(ctx, database, eq.ID)
	if len(entries) != 1 || entries[0].HolderID != member.ID {
		t.Errorf("expected one history entry for member, got %v", entries)
	}

	// A second commit of the same transfer is a no-op.
	err = CommitTransfer(ctx, database, transfer.ID, at)
	if !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending on double commit, got %v", err)
	}
	entries, _ = HistoryForEquipment(ctx, database, eq.ID)
	if len(entries) != 1 {
		t.Errorf("double commit appended history: %d entries", len(entries))
	}
}

func TestRejectTransferLeavesHolder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	storehouse, member, eq := seedEquipment(t, database)

	transfer, err := OpenTransfer(ctx, database, eq.ID, member.ID, "batch-1")
	if err != nil {
		t.Fatalf("OpenTransfer: %v", err)
	}

	if err := RejectTransfer(ctx, database, transfer.ID, time.Now()); err != nil {
		t.Fatalf("RejectTransfer: %v", err)
	}

	got, _ := GetEquipment(ctx, database, eq.ID)
	if got.HolderID != storehouse.ID {
		t.Errorf("reject mutated holder: got %d, want %d", got.HolderID, storehouse.ID)
	}

	entries, _ := HistoryForEquipment(ctx, database, eq.ID)
	if len(entries) != 0 {
		t.Errorf("reject appended history: %d entries", len(entries))
	}

	// Equipment is free for a new transfer again.
	if _, err := OpenTransfer(ctx, database, eq.ID, member.ID, "batch-2"); err != nil {
		t.Errorf("OpenTransfer after reject: %v", err)
	}
}

func TestPendingByBatch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	storehouse, member, eq := seedEquipment(t, database)
	eq2, _ := CreateEquipment(ctx, database, eq.CategoryID, "Tripod", "", storehouse.ID)

	OpenTransfer(ctx, database, eq.ID, member.ID, "batch-1")
	OpenTransfer(ctx, database, eq2.ID, member.ID, "batch-1")

	pending, err := PendingByBatch(ctx, database, "batch-1")
	if err != nil {
		t.Fatalf("PendingByBatch: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending transfers, got %d", len(pending))
	}

	CommitTransfer(ctx, database, pending[0].ID, time.Now())

	pending, _ = PendingByBatch(ctx, database, "batch-1")
	if len(pending) != 1 {
		t.Errorf("expected 1 pending transfer after commit, got %d", len(pending))
	}
}

func TestListTransfersFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	storehouse, member, eq := seedEquipment(t, database)
	eq2, _ := CreateEquipment(ctx, database, eq.CategoryID, "Tripod", "", storehouse.ID)

	t1, _ := OpenTransfer(ctx, database, eq.ID, member.ID, "batch-1")
	OpenTransfer(ctx, database, eq2.ID, member.ID, "batch-2")
	CommitTransfer(ctx, database, t1.ID, time.Now())

	all, _ := ListTransfers(ctx, database, 0, 0, "", "")
	if len(all) != 2 {
		t.Errorf("expected 2 transfers, got %d", len(all))
	}

	verified, _ := ListTransfers(ctx, database, 0, 0, model.TransferVerified, "")
	if len(verified) != 1 {
		t.Errorf("expected 1 verified transfer, got %d", len(verified))
	}

	byEquipment, _ := ListTransfers(ctx, database, eq2.ID, 0, "", "")
	if len(byEquipment) != 1 {
		t.Errorf("expected 1 transfer for second item, got %d", len(byEquipment))
	}

	byBatch, _ := ListTransfers(ctx, database, 0, 0, "", "batch-1")
	if len(byBatch) != 1 {
		t.Errorf("expected 1 transfer for batch-1, got %d", len(byBatch))
	}
}

func TestClaimBatchFirstClaimWins(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	storehouse, member, camera := seedEquipment(t, database)
	cat, err := GetCategoryByName(ctx, database, "Cameras")
	if err != nil || cat == nil {
		t.Fatalf("GetCategoryByName: %v", err)
	}
	tripod, err := CreateEquipment(ctx, database, cat.ID, "Tripod", "", storehouse.ID)
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}

	if _, err := OpenTransfer(ctx, database, camera.ID, member.ID, "batch-1"); err != nil {
		t.Fatalf("OpenTransfer camera: %v", err)
	}
	if _, err := OpenTransfer(ctx, database, tripod.ID, member.ID, "batch-1"); err != nil {
		t.Fatalf("OpenTransfer tripod: %v", err)
	}

	at := time.Now()
	claimed, err := ClaimBatch(ctx, database, "batch-1", model.TransferVerified, at)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected to claim 2 transfers, got %d", len(claimed))
	}

	// The opposite decision arriving second must find nothing to claim.
	_, err = ClaimBatch(ctx, database, "batch-1", model.TransferDeleted, at)
	if !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending for second claim, got %v", err)
	}

	transfers, err := ListTransfers(ctx, database, 0, 0, "", "batch-1")
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	for _, tr := range transfers {
		if tr.Status != model.TransferVerified {
			t.Errorf("transfer %d status = %q, want verified", tr.ID, tr.Status)
		}
	}

	// Claiming changes transfer rows only.
	got, _ := GetEquipment(ctx, database, camera.ID)
	if got.HolderID != storehouse.ID {
		t.Errorf("claim mutated holder: got %d, want %d", got.HolderID, storehouse.ID)
	}
}
