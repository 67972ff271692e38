package store

import (
	"context"
	"testing"

	"github.com/alnkravchenko/tracking-bot/internal/db"
	"github.com/alnkravchenko/tracking-bot/internal/model"
)

func TestPersonLookup(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	created, err := CreatePerson(ctx, database, 42, "Alice", "alice", model.RoleUnverified)
	if err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	if created.ID != 42 || created.Handle != "alice" {
		t.Errorf("unexpected person: %+v", created)
	}

	byID, _ := GetPerson(ctx, database, 42)
	if byID == nil || byID.Name != "Alice" {
		t.Errorf("GetPerson returned %+v", byID)
	}

	byHandle, _ := GetPersonByHandle(ctx, database, "alice")
	if byHandle == nil || byHandle.ID != 42 {
		t.Errorf("GetPersonByHandle returned %+v", byHandle)
	}

	missing, err := GetPerson(ctx, database, 999)
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing person, got %v, %v", missing, err)
	}
}

func TestPersonWithoutHandle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// Two people without handles must not collide on the unique index.
	if _, err := CreatePerson(ctx, database, 1, "First", "", model.RoleMember); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	if _, err := CreatePerson(ctx, database, 2, "Second", "", model.RoleMember); err != nil {
		t.Fatalf("CreatePerson without handle collided: %v", err)
	}
}

func TestListAdmins(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreatePerson(ctx, database, 1, "Storehouse", "", model.RoleAdmin)
	CreatePerson(ctx, database, 2, "Alice", "alice", model.RoleMember)
	CreatePerson(ctx, database, 3, "Boss", "boss", model.RoleAdmin)

	admins, err := ListAdmins(ctx, database)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if len(admins) != 2 {
		t.Errorf("expected 2 admins, got %d", len(admins))
	}
}

func TestUpdatePersonRole(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreatePerson(ctx, database, 5, "Newbie", "", model.RoleUnverified)

	if err := UpdatePersonRole(ctx, database, 5, model.RoleMember); err != nil {
		t.Fatalf("UpdatePersonRole: %v", err)
	}

	p, _ := GetPerson(ctx, database, 5)
	if p.Role != model.RoleMember {
		t.Errorf("expected member role, got %q", p.Role)
	}
}
