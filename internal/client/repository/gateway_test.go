package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm-backend/internal/client/domain"
	"crm-backend/internal/db"
	"crm-backend/internal/db/dbtest"
)

func strPtr(s string) *string { return &s }

func TestGatewayRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewGatewayRepository(dbtest.NewMemoryGateway())

	c := domain.NewClient("Ana", "Silva")
	c.ID = "should-be-ignored"
	c.Email = strPtr("ana@example.com")
	id, err := repo.Create(ctx, c)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "should-be-ignored" || !repo.ValidID(id) {
		t.Fatalf("Create returned id %q, want storage-assigned ObjectID", id)
	}
	if c.ID != "should-be-ignored" {
		t.Error("Create should not mutate the caller's record")
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil for existing client")
	}
	if got.ID != id || got.FirstName != "Ana" || got.Email == nil || *got.Email != "ana@example.com" {
		t.Errorf("GetByID = %+v", got)
	}
	if got.Phone != nil || got.Address != nil || got.UpdatedAt != nil {
		t.Error("unset optional fields should come back nil")
	}
}

func TestGatewayRepository_GetByID_NotFound(t *testing.T) {
	repo := NewGatewayRepository(dbtest.NewMemoryGateway())
	got, err := repo.GetByID(context.Background(), "65f0a0a0a0a0a0a0a0a0a0a0")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Errorf("GetByID = %+v, want nil", got)
	}
}

func TestGatewayRepository_NormalizesMissingTags(t *testing.T) {
	ctx := context.Background()
	gw := dbtest.NewMemoryGateway()
	// A document written without a tags key, as older records may be.
	type legacy struct {
		FirstName string `bson:"first_name"`
		LastName  string `bson:"last_name"`
	}
	id, err := gw.Insert(ctx, Collection, legacy{FirstName: "Old", LastName: "Record"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	repo := NewGatewayRepository(gw)
	got, err := repo.GetByID(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("GetByID = %v, %v", got, err)
	}
	if got.Tags == nil {
		t.Error("Tags should be normalized to an empty slice")
	}
	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].Tags == nil {
		t.Errorf("List = %+v, want one record with non-nil tags", all)
	}
}

func TestGatewayRepository_ListAndListByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewGatewayRepository(dbtest.NewMemoryGateway())

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("List on empty store = %#v, want empty non-nil slice", all)
	}

	for _, email := range []string{"a@example.com", "b@example.com"} {
		c := domain.NewClient("N", "M")
		c.Email = strPtr(email)
		if _, err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	matches, err := repo.ListByEmail(ctx, "b@example.com")
	if err != nil {
		t.Fatalf("ListByEmail: %v", err)
	}
	if len(matches) != 1 || *matches[0].Email != "b@example.com" {
		t.Errorf("ListByEmail = %+v", matches)
	}
	none, err := repo.ListByEmail(ctx, "c@example.com")
	if err != nil || len(none) != 0 {
		t.Errorf("ListByEmail(unknown) = %v, %v", none, err)
	}
}

func TestGatewayRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewGatewayRepository(dbtest.NewMemoryGateway())
	id, err := repo.Create(ctx, domain.NewClient("Ana", "Silva"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	matched, err := repo.Update(ctx, id, map[string]any{"lead_status": domain.LeadStatusCustomer, "updated_at": now})
	if err != nil || !matched {
		t.Fatalf("Update = %v, %v", matched, err)
	}
	got, _ := repo.GetByID(ctx, id)
	if got.LeadStatus != domain.LeadStatusCustomer || got.UpdatedAt == nil || !got.UpdatedAt.Equal(now) {
		t.Errorf("after update = %+v", got)
	}

	matched, err = repo.Update(ctx, "65f0a0a0a0a0a0a0a0a0a0a0", map[string]any{"notes": "x"})
	if err != nil || matched {
		t.Errorf("Update missing = %v, %v; want false", matched, err)
	}

	deleted, err := repo.Delete(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v", deleted, err)
	}
	deleted, err = repo.Delete(ctx, id)
	if err != nil || deleted {
		t.Errorf("second Delete = %v, %v; want false", deleted, err)
	}
}

func TestGatewayRepository_StorageError(t *testing.T) {
	gw := dbtest.NewMemoryGateway()
	gw.Err = errors.New("connection refused")
	repo := NewGatewayRepository(gw)
	ctx := context.Background()

	if _, err := repo.Create(ctx, domain.NewClient("a", "b")); !errors.Is(err, db.ErrStorage) {
		t.Errorf("Create err = %v, want ErrStorage", err)
	}
	if _, err := repo.List(ctx); !errors.Is(err, db.ErrStorage) {
		t.Errorf("List err = %v, want ErrStorage", err)
	}
	if _, err := repo.GetByID(ctx, "65f0a0a0a0a0a0a0a0a0a0a0"); !errors.Is(err, db.ErrStorage) {
		t.Errorf("GetByID err = %v, want ErrStorage", err)
	}
	if _, err := repo.Update(ctx, "65f0a0a0a0a0a0a0a0a0a0a0", map[string]any{"notes": "x"}); !errors.Is(err, db.ErrStorage) {
		t.Errorf("Update err = %v, want ErrStorage", err)
	}
	if _, err := repo.Delete(ctx, "65f0a0a0a0a0a0a0a0a0a0a0"); !errors.Is(err, db.ErrStorage) {
		t.Errorf("Delete err = %v, want ErrStorage", err)
	}
}
