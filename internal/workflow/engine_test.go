package workflow

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alnkravchenko/tracking-bot/internal/db"
	"github.com/alnkravchenko/tracking-bot/internal/model"
	"github.com/alnkravchenko/tracking-bot/internal/store"
)

const storehouseID = 1

func newTestEngine(t *testing.T) (*Engine, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	store.CreatePerson(ctx, database, storehouseID, "Storehouse", "", model.RoleAdmin)
	store.CreatePerson(ctx, database, 10, "Boss", "boss", model.RoleAdmin)
	store.CreatePerson(ctx, database, 100, "Alice", "alice", model.RoleMember)
	store.CreatePerson(ctx, database, 200, "Bob", "bob", model.RoleMember)
	store.CreatePerson(ctx, database, 300, "Newbie", "", model.RoleUnverified)

	return New(database, storehouseID), database
}

func addEquipment(t *testing.T, database *sql.DB, name string) *model.Equipment {
	t.Helper()
	ctx := context.Background()

	cat, err := store.GetCategory(ctx, database, 1)
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if cat == nil {
		cat, err = store.CreateCategory(ctx, database, "Cameras")
		if err != nil {
			t.Fatalf("CreateCategory: %v", err)
		}
	}

	eq, err := store.CreateEquipment(ctx, database, cat.ID, name, "", storehouseID)
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}
	return eq
}

func TestOpenRequiresVerifiedRequester(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	eq := addEquipment(t, database, "Camera")

	_, err := engine.Open(ctx, eq.ID, 300, "batch-1")
	if !errors.Is(err, ErrNotVerified) {
		t.Errorf("expected ErrNotVerified, got %v", err)
	}

	_, err = engine.Open(ctx, eq.ID, 999, "batch-1")
	if !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("expected ErrPersonNotFound, got %v", err)
	}
}

func TestOpenUnknownEquipment(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Open(ctx, 12345, 100, "batch-1")
	if !errors.Is(err, ErrEquipmentNotFound) {
		t.Errorf("expected ErrEquipmentNotFound, got %v", err)
	}
}

func TestOpenMutualExclusion(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	eq := addEquipment(t, database, "Camera")

	if _, err := engine.Open(ctx, eq.ID, 100, "batch-alice"); err != nil {
		t.Fatalf("first open: %v", err)
	}

	_, err := engine.Open(ctx, eq.ID, 200, "batch-bob")
	if !errors.Is(err, ErrConflictingPending) {
		t.Errorf("expected ErrConflictingPending, got %v", err)
	}
}

func TestApproveCommitsBatch(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	camera := addEquipment(t, database, "Camera")
	tripod := addEquipment(t, database, "Tripod")

	engine.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }

	engine.Open(ctx, camera.ID, 100, "batch-1")
	engine.Open(ctx, tripod.ID, 100, "batch-1")

	report, err := engine.Resolve(ctx, "batch-1", 10, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(report.Resolved) != 2 || !report.AllResolved() {
		t.Fatalf("expected 2 committed items, got %+v", report)
	}

	for _, id := range []int64{camera.ID, tripod.ID} {
		eq, _ := store.GetEquipment(ctx, database, id)
		if eq.HolderID != 100 {
			t.Errorf("equipment %d holder = %d, want 100", id, eq.HolderID)
		}
		entries, _ := store.HistoryForEquipment(ctx, database, id)
		if len(entries) != 1 || entries[0].HolderID != 100 {
			t.Errorf("equipment %d history = %v", id, entries)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	eq := addEquipment(t, database, "Camera")

	engine.Open(ctx, eq.ID, 100, "batch-1")

	if _, err := engine.Resolve(ctx, "batch-1", 10, true); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	// A second admin's late decision must be a no-op.
	_, err := engine.Resolve(ctx, "batch-1", 10, false)
	if !errors.Is(err, ErrBatchResolved) {
		t.Errorf("expected ErrBatchResolved, got %v", err)
	}

	got, _ := store.GetEquipment(ctx, database, eq.ID)
	if got.HolderID != 100 {
		t.Errorf("late decision re-mutated holder: %d", got.HolderID)
	}
	entries, _ := store.HistoryForEquipment(ctx, database, eq.ID)
	if len(entries) != 1 {
		t.Errorf("late decision appended history: %d entries", len(entries))
	}
}

func TestRejectLeavesRegistryUntouched(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	camera := addEquipment(t, database, "Camera")
	tripod := addEquipment(t, database, "Tripod")

	engine.Open(ctx, camera.ID, 100, "batch-1")
	engine.Open(ctx, tripod.ID, 100, "batch-1")

	report, err := engine.Resolve(ctx, "batch-1", 10, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(report.Resolved) != 2 {
		t.Errorf("expected 2 rejected items in report, got %+v", report)
	}

	for _, id := range []int64{camera.ID, tripod.ID} {
		eq, _ := store.GetEquipment(ctx, database, id)
		if eq.HolderID != storehouseID {
			t.Errorf("reject changed holder of %d to %d", id, eq.HolderID)
		}
		entries, _ := store.HistoryForEquipment(ctx, database, id)
		if len(entries) != 0 {
			t.Errorf("reject appended history for %d", id)
		}
	}
}

func TestResolveRequiresAdmin(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	eq := addEquipment(t, database, "Camera")

	engine.Open(ctx, eq.ID, 100, "batch-1")

	_, err := engine.Resolve(ctx, "batch-1", 200, true)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for member, got %v", err)
	}

	// The failed attempt must not consume the batch.
	if _, err := engine.Resolve(ctx, "batch-1", 10, true); err != nil {
		t.Errorf("admin resolve after refused attempt: %v", err)
	}
}

func TestReturnAll(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	camera := addEquipment(t, database, "Camera")
	tripod := addEquipment(t, database, "Tripod")

	// Check both items out to Alice first.
	engine.Open(ctx, camera.ID, 100, "batch-1")
	engine.Open(ctx, tripod.ID, 100, "batch-1")
	if _, err := engine.Resolve(ctx, "batch-1", 10, true); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	report, err := engine.ReturnAll(ctx, 100)
	if err != nil {
		t.Fatalf("ReturnAll: %v", err)
	}
	if len(report.Resolved) != 2 || !report.AllResolved() {
		t.Fatalf("expected both items returned, got %+v", report)
	}

	for _, id := range []int64{camera.ID, tripod.ID} {
		eq, _ := store.GetEquipment(ctx, database, id)
		if eq.HolderID != storehouseID {
			t.Errorf("equipment %d holder = %d, want storehouse", id, eq.HolderID)
		}
		// Checkout entry plus return entry.
		entries, _ := store.HistoryForEquipment(ctx, database, id)
		if len(entries) != 2 {
			t.Errorf("equipment %d has %d history entries, want 2", id, len(entries))
		}
	}

	pending, _ := store.PendingForHolder(ctx, database, 100)
	if len(pending) != 0 {
		t.Errorf("expected zero pending transfers after return, got %d", len(pending))
	}
}

func TestReturnAllDiscardsPendingCheckouts(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	camera := addEquipment(t, database, "Camera")

	// Alice scanned the camera but never finished the checkout.
	engine.Open(ctx, camera.ID, 100, "batch-1")

	report, err := engine.ReturnAll(ctx, 100)
	if err != nil {
		t.Fatalf("ReturnAll: %v", err)
	}
	if len(report.Resolved) != 0 {
		t.Errorf("nothing was held, but %d items returned", len(report.Resolved))
	}

	pending, _ := store.PendingForHolder(ctx, database, 100)
	if len(pending) != 0 {
		t.Errorf("expected stale pending transfer discarded, got %d", len(pending))
	}

	// The camera is available again.
	if _, err := engine.Open(ctx, camera.ID, 200, "batch-bob"); err != nil {
		t.Errorf("open after discarded pending: %v", err)
	}
}

func TestCancelBatch(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	camera := addEquipment(t, database, "Camera")
	tripod := addEquipment(t, database, "Tripod")

	engine.Open(ctx, camera.ID, 100, "batch-1")
	engine.Open(ctx, tripod.ID, 100, "batch-1")

	n, err := engine.Cancel(ctx, "batch-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cancelled transfers, got %d", n)
	}

	_, err = engine.Resolve(ctx, "batch-1", 10, true)
	if !errors.Is(err, ErrBatchResolved) {
		t.Errorf("expected ErrBatchResolved after cancel, got %v", err)
	}
}

func TestRegisterEquipmentAuthorization(t *testing.T) {
	engine, database := newTestEngine(t)
	ctx := context.Background()
	cat, _ := store.CreateCategory(ctx, database, "Audio")

	// Member may not own newly registered equipment.
	_, err := engine.RegisterEquipment(ctx, cat.ID, "Microphone", "", 100)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for member owner, got %v", err)
	}

	// Storehouse and admins may.
	if _, err := engine.RegisterEquipment(ctx, cat.ID, "Microphone", "", storehouseID); err != nil {
		t.Errorf("RegisterEquipment for storehouse: %v", err)
	}
	if _, err := engine.RegisterEquipment(ctx, cat.ID, "Mixer", "", 10); err != nil {
		t.Errorf("RegisterEquipment for admin: %v", err)
	}

	_, err = engine.RegisterEquipment(ctx, 999, "Cable", "", storehouseID)
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestVerifyIdempotent(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	p, err := engine.Verify(ctx, 300)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Role != model.RoleMember {
		t.Errorf("expected member after verify, got %q", p.Role)
	}

	// Verifying again, or verifying an admin, changes nothing.
	p, err = engine.Verify(ctx, 300)
	if err != nil || p.Role != model.RoleMember {
		t.Errorf("second verify: %v, role %q", err, p.Role)
	}
	p, err = engine.Verify(ctx, 10)
	if err != nil || p.Role != model.RoleAdmin {
		t.Errorf("verify admin: %v, role %q", err, p.Role)
	}

	_, err = engine.Verify(ctx, 999)
	if !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("expected ErrPersonNotFound, got %v", err)
	}
}

// Two admins answering the same prompt from different chats race each other.
// The batch claim is atomic, so exactly one decision wins outright and the
// other gets ErrBatchResolved; a batch split between approve and reject must
// be impossible.
func TestConcurrentDecisionsDoNotSplitBatch(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "race.sqlite3"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.EnsureSchema(database); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	ctx := context.Background()
	store.CreatePerson(ctx, database, storehouseID, "Storehouse", "", model.RoleAdmin)
	store.CreatePerson(ctx, database, 10, "Boss", "boss", model.RoleAdmin)
	store.CreatePerson(ctx, database, 11, "Chief", "chief", model.RoleAdmin)
	store.CreatePerson(ctx, database, 100, "Alice", "alice", model.RoleMember)
	cat, _ := store.CreateCategory(ctx, database, "Cameras")
	camera, _ := store.CreateEquipment(ctx, database, cat.ID, "Camera", "", storehouseID)
	tripod, _ := store.CreateEquipment(ctx, database, cat.ID, "Tripod", "", storehouseID)

	engine := New(database, storehouseID)
	if _, err := engine.Open(ctx, camera.ID, 100, "batch-1"); err != nil {
		t.Fatalf("Open camera: %v", err)
	}
	if _, err := engine.Open(ctx, tripod.ID, 100, "batch-1"); err != nil {
		t.Fatalf("Open tripod: %v", err)
	}

	errs := make(chan error, 2)
	var start sync.WaitGroup
	start.Add(1)
	go func() {
		start.Wait()
		_, err := engine.Resolve(ctx, "batch-1", 10, true)
		errs <- err
	}()
	go func() {
		start.Wait()
		_, err := engine.Resolve(ctx, "batch-1", 11, false)
		errs <- err
	}()
	start.Done()

	var won, lost int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			won++
		case errors.Is(err, ErrBatchResolved):
			lost++
		default:
			t.Fatalf("Resolve: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("expected exactly one winning decision, got %d wins and %d losses", won, lost)
	}

	// Whichever decision won applied to the whole batch.
	transfers, err := store.ListTransfers(ctx, database, 0, 0, "", "batch-1")
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(transfers) != 2 || transfers[0].Status != transfers[1].Status {
		t.Fatalf("batch split between decisions: %+v", transfers)
	}

	cameraEq, _ := store.GetEquipment(ctx, database, camera.ID)
	tripodEq, _ := store.GetEquipment(ctx, database, tripod.ID)
	if cameraEq.HolderID != tripodEq.HolderID {
		t.Errorf("holders diverged: camera=%d tripod=%d", cameraEq.HolderID, tripodEq.HolderID)
	}
}
