package dbtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm-backend/internal/db"
)

type record struct {
	ID        string     `bson:"_id,omitempty"`
	Name      string     `bson:"name"`
	Email     *string    `bson:"email,omitempty"`
	Tags      []string   `bson:"tags"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty"`
}

func TestMemoryGateway_InsertFindOne(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	id, err := g.Insert(ctx, "client", record{Name: "Ana", Tags: []string{}})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !g.ValidID(id) || len(id) != 24 {
		t.Fatalf("Insert returned id %q, want 24-char hex", id)
	}
	var got record
	found, err := g.FindOne(ctx, "client", id, &got)
	if err != nil || !found {
		t.Fatalf("FindOne = %v, %v; want found", found, err)
	}
	if got.ID != id || got.Name != "Ana" {
		t.Errorf("got %+v, want id %s name Ana", got, id)
	}
	if got.Email != nil {
		t.Error("unset optional field should not be stored")
	}
}

func TestMemoryGateway_FindOneMissing(t *testing.T) {
	g := NewMemoryGateway()
	var got record
	found, err := g.FindOne(context.Background(), "client", "65f0a0a0a0a0a0a0a0a0a0a0", &got)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if found {
		t.Error("FindOne on empty collection should report not found")
	}
}

func TestMemoryGateway_FindAllFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	a, b := "a@example.com", "b@example.com"
	for _, r := range []record{{Name: "one", Email: &a}, {Name: "two", Email: &b}, {Name: "three", Email: &a}} {
		if _, err := g.Insert(ctx, "client", r); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	var all []record
	if err := g.FindAll(ctx, "client", nil, &all); err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 3 || all[0].Name != "one" || all[2].Name != "three" {
		t.Errorf("FindAll = %+v, want three records in insertion order", all)
	}

	var filtered []record
	if err := g.FindAll(ctx, "client", map[string]any{"email": a}, &filtered); err != nil {
		t.Fatalf("FindAll filtered: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("filtered = %+v, want 2 records", filtered)
	}

	var none []record
	if err := g.FindAll(ctx, "other", nil, &none); err != nil {
		t.Fatalf("FindAll empty: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("FindAll on missing collection = %#v, want empty non-nil slice", none)
	}

	if err := g.FindAll(ctx, "client", nil, all); err == nil {
		t.Error("FindAll with non-pointer out should return error")
	}
}

func TestMemoryGateway_UpdateOneMerges(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	email := "a@example.com"
	id, _ := g.Insert(ctx, "client", record{Name: "Ana", Email: &email, Tags: []string{"x"}})

	now := time.Now().UTC().Truncate(time.Millisecond)
	matched, err := g.UpdateOne(ctx, "client", id, map[string]any{"name": "Bea", "updated_at": now})
	if err != nil || matched != 1 {
		t.Fatalf("UpdateOne = %d, %v; want 1", matched, err)
	}
	var got record
	if _, err := g.FindOne(ctx, "client", id, &got); err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if got.Name != "Bea" {
		t.Errorf("Name = %q, want Bea", got.Name)
	}
	if got.Email == nil || *got.Email != email {
		t.Errorf("Email = %v, want untouched %s", got.Email, email)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "x" {
		t.Errorf("Tags = %v, want untouched [x]", got.Tags)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, now)
	}

	matched, err = g.UpdateOne(ctx, "client", id, map[string]any{"email": nil})
	if err != nil || matched != 1 {
		t.Fatalf("UpdateOne null = %d, %v", matched, err)
	}
	got = record{}
	if _, err := g.FindOne(ctx, "client", id, &got); err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if got.Email != nil {
		t.Errorf("Email = %v, want nil after explicit null", *got.Email)
	}

	matched, err = g.UpdateOne(ctx, "client", "65f0a0a0a0a0a0a0a0a0a0a0", map[string]any{"name": "x"})
	if err != nil || matched != 0 {
		t.Errorf("UpdateOne missing = %d, %v; want 0", matched, err)
	}
}

func TestMemoryGateway_DeleteOne(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	id, _ := g.Insert(ctx, "client", record{Name: "Ana"})

	deleted, err := g.DeleteOne(ctx, "client", id)
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteOne = %d, %v; want 1", deleted, err)
	}
	deleted, err = g.DeleteOne(ctx, "client", id)
	if err != nil || deleted != 0 {
		t.Errorf("second DeleteOne = %d, %v; want 0", deleted, err)
	}
	if g.WriteCount() != 2 {
		t.Errorf("WriteCount = %d, want 2 (insert + one delete)", g.WriteCount())
	}
}

func TestMemoryGateway_RejectsCallerSuppliedID(t *testing.T) {
	g := NewMemoryGateway()
	if _, err := g.Insert(context.Background(), "client", record{ID: "abc", Name: "x"}); err == nil {
		t.Error("Insert with _id should return error")
	}
}

func TestMemoryGateway_ErrIsStorageError(t *testing.T) {
	g := NewMemoryGateway()
	g.Err = errors.New("connection reset")
	var out []record
	err := g.FindAll(context.Background(), "client", nil, &out)
	if !errors.Is(err, db.ErrStorage) {
		t.Errorf("FindAll err = %v, want ErrStorage", err)
	}
	if err := g.Ping(context.Background()); !errors.Is(err, db.ErrStorage) {
		t.Errorf("Ping err = %v, want ErrStorage", err)
	}
}

func TestMemoryGateway_CollectionNames(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	_, _ = g.Insert(ctx, "client", record{Name: "a"})
	_, _ = g.Insert(ctx, "audit", record{Name: "b"})
	names, err := g.CollectionNames(ctx)
	if err != nil {
		t.Fatalf("CollectionNames: %v", err)
	}
	if len(names) != 2 || names[0] != "audit" || names[1] != "client" {
		t.Errorf("CollectionNames = %v, want [audit client]", names)
	}
	if g.Name() != "memory" {
		t.Errorf("Name = %q", g.Name())
	}
}

func TestMemoryGateway_ValidID(t *testing.T) {
	g := NewMemoryGateway()
	testCases := []struct {
		id   string
		want bool
	}{
		{"65f0a0a0a0a0a0a0a0a0a0a0", true},
		{"65f0a0a0a0a0a0a0a0a0a0a", false},
		{"not-an-id", false},
		{"", false},
		{"zzzzzzzzzzzzzzzzzzzzzzzz", false},
	}
	for _, tc := range testCases {
		if got := g.ValidID(tc.id); got != tc.want {
			t.Errorf("ValidID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
