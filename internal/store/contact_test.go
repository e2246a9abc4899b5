package store

import (
	"context"
	"math"
	"testing"

	"github.com/dukerupert/contactbook/internal/database"
	"github.com/dukerupert/contactbook/internal/model"
)

func setupContactTestDB(t *testing.T) (*ContactStore, *AccountStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewContactStore(db), NewAccountStore(db)
}

var bob = model.ContactInput{Name: "Bob", Email: "bob@example.com", Phone: "(555) 010-0000"}

func TestContactCRUD(t *testing.T) {
	cs, as := setupContactTestDB(t)
	ctx := context.Background()
	owner := createAccount(t, as, "alice@example.com")

	// Create
	c, err := cs.Create(ctx, owner.ID, bob)
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if c.Name != "Bob" {
		t.Errorf("name = %q, want %q", c.Name, "Bob")
	}
	if c.Favorite {
		t.Error("expected favorite = false")
	}
	if c.OwnerID != owner.ID {
		t.Errorf("owner = %q, want %q", c.OwnerID, owner.ID)
	}

	// Read
	got, err := cs.GetByID(ctx, owner.ID, c.ID)
	if err != nil {
		t.Fatalf("get contact: %v", err)
	}
	if got == nil || got.Email != bob.Email || got.Phone != bob.Phone {
		t.Fatalf("got %+v, want fields of %+v", got, bob)
	}

	// Update
	updated, err := cs.Update(ctx, owner.ID, c.ID, model.ContactInput{Name: "Robert", Email: "rob@example.com", Phone: "1"})
	if err != nil {
		t.Fatalf("update contact: %v", err)
	}
	if updated.Name != "Robert" || updated.Email != "rob@example.com" {
		t.Errorf("updated = %+v", updated)
	}

	// Favorite
	fav, err := cs.SetFavorite(ctx, owner.ID, c.ID, true)
	if err != nil {
		t.Fatalf("set favorite: %v", err)
	}
	if !fav.Favorite {
		t.Error("expected favorite = true")
	}

	// Delete
	ok, err := cs.Delete(ctx, owner.ID, c.ID)
	if err != nil {
		t.Fatalf("delete contact: %v", err)
	}
	if !ok {
		t.Error("expected delete to report existing contact")
	}
	gone, _ := cs.GetByID(ctx, owner.ID, c.ID)
	if gone != nil {
		t.Error("expected contact to be gone")
	}
}

func TestContactOwnerIsolation(t *testing.T) {
	cs, as := setupContactTestDB(t)
	ctx := context.Background()
	alice := createAccount(t, as, "alice@example.com")
	mallory := createAccount(t, as, "mallory@example.com")

	c, _ := cs.Create(ctx, alice.ID, bob)

	if got, _ := cs.GetByID(ctx, mallory.ID, c.ID); got != nil {
		t.Error("other owner should not read contact")
	}
	if got, _ := cs.Update(ctx, mallory.ID, c.ID, bob); got != nil {
		t.Error("other owner should not update contact")
	}
	if got, _ := cs.SetFavorite(ctx, mallory.ID, c.ID, true); got != nil {
		t.Error("other owner should not favorite contact")
	}
	if ok, _ := cs.Delete(ctx, mallory.ID, c.ID); ok {
		t.Error("other owner should not delete contact")
	}

	list, _ := cs.List(ctx, mallory.ID, model.ContactFilter{})
	if len(list) != 0 {
		t.Errorf("mallory list len = %d, want 0", len(list))
	}

	still, _ := cs.GetByID(ctx, alice.ID, c.ID)
	if still == nil || still.Favorite {
		t.Errorf("alice contact changed: %+v", still)
	}
}

func TestContactListFilterAndPaging(t *testing.T) {
	cs, as := setupContactTestDB(t)
	ctx := context.Background()
	owner := createAccount(t, as, "alice@example.com")

	for i := 0; i < 5; i++ {
		c, err := cs.Create(ctx, owner.ID, bob)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if i%2 == 0 {
			cs.SetFavorite(ctx, owner.ID, c.ID, true)
		}
	}

	all, err := cs.List(ctx, owner.ID, model.ContactFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("all len = %d, want 5", len(all))
	}

	yes := true
	favs, _ := cs.List(ctx, owner.ID, model.ContactFilter{Favorite: &yes})
	if len(favs) != 3 {
		t.Errorf("favorites len = %d, want 3", len(favs))
	}

	page2, _ := cs.List(ctx, owner.ID, model.ContactFilter{Page: 2, Limit: 2})
	if len(page2) != 2 {
		t.Fatalf("page 2 len = %d, want 2", len(page2))
	}
	if page2[0].ID != all[2].ID {
		t.Errorf("page 2 first = %s, want %s", page2[0].ID, all[2].ID)
	}

	page3, _ := cs.List(ctx, owner.ID, model.ContactFilter{Page: 3, Limit: 2})
	if len(page3) != 1 {
		t.Errorf("page 3 len = %d, want 1", len(page3))
	}
}

func TestContactListFarPageIsEmpty(t *testing.T) {
	cs, as := setupContactTestDB(t)
	ctx := context.Background()
	owner := createAccount(t, as, "alice@example.com")

	if _, err := cs.Create(ctx, owner.ID, bob); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, page := range []int{922337203685477581, math.MaxInt} {
		list, err := cs.List(ctx, owner.ID, model.ContactFilter{Page: page, Limit: 100})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(list) != 0 {
			t.Errorf("page %d: got %d contacts, want none", page, len(list))
		}
	}
}
