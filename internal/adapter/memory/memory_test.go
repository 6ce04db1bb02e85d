package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestUserRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	u, err := db.Create(ctx, "admin", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}

	if _, err := db.Create(ctx, "admin", "other"); err == nil {
		t.Error("expected duplicate username to fail")
	}

	got, err := db.GetByUsername(ctx, "admin")
	if err != nil || got == nil {
		t.Fatalf("GetByUsername: %v, %v", got, err)
	}

	// mutating a returned copy must not leak into the store
	got.Username = "mutated"
	again, _ := db.GetByID(ctx, u.ID)
	if again.Username != "admin" {
		t.Errorf("expected stored username 'admin', got %q", again.Username)
	}

	got.TwoFactorEnabled = true
	if err := db.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ = db.GetByID(ctx, u.ID)
	if again.Username != "mutated" || !again.TwoFactorEnabled {
		t.Errorf("update not applied: %+v", again)
	}

	missing, err := db.GetByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil; got %v, %v", missing, err)
	}

	if n, _ := db.Count(ctx); n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
}

func TestDiagramRepository(t *testing.T) {
	db := New()
	ctx := context.Background()
	owner, other := int64(1), int64(2)
	now := time.Now()

	id, err := db.CreateDiagram(ctx, owner, "Flow", "<a/>", now)
	if err != nil {
		t.Fatalf("CreateDiagram: %v", err)
	}

	if ok, _ := db.OwnsDiagram(ctx, other, id); ok {
		t.Error("other user should not own diagram")
	}
	if ok, _ := db.DiagramExists(ctx, id); !ok {
		t.Error("diagram should exist")
	}

	if n, _ := db.UpdateDiagram(ctx, other, id, "x", "<x/>", now); n != 0 {
		t.Error("foreign update should affect no rows")
	}
	if n, _ := db.UpdateDiagram(ctx, owner, id, "Flow v2", "<b/>", now.Add(time.Second)); n != 1 {
		t.Error("owner update should affect one row")
	}

	d, _ := db.GetDiagram(ctx, owner, id)
	if d == nil || d.Name != "Flow v2" || d.XML != "<b/>" {
		t.Fatalf("unexpected diagram: %+v", d)
	}
	if d2, _ := db.GetDiagram(ctx, other, id); d2 != nil {
		t.Error("other user should not see diagram")
	}

	if n, _ := db.RenameDiagram(ctx, owner, id, "Renamed", now); n != 1 {
		t.Error("rename should affect one row")
	}
	if n, _ := db.DeleteDiagram(ctx, other, id); n != 0 {
		t.Error("foreign delete should affect no rows")
	}
	if n, _ := db.DeleteDiagram(ctx, owner, id); n != 1 {
		t.Error("owner delete should affect one row")
	}
	if ok, _ := db.DiagramExists(ctx, id); ok {
		t.Error("diagram should be gone")
	}
}

func TestListDiagramsOrdering(t *testing.T) {
	db := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a, _ := db.CreateDiagram(ctx, 1, "a", "", base)
	b, _ := db.CreateDiagram(ctx, 1, "b", "", base.Add(time.Hour))
	c, _ := db.CreateDiagram(ctx, 1, "c", "", base.Add(time.Hour))
	_, _ = db.CreateDiagram(ctx, 2, "foreign", "", base.Add(2*time.Hour))

	list, err := db.ListDiagrams(ctx, 1)
	if err != nil {
		t.Fatalf("ListDiagrams: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 diagrams, got %d", len(list))
	}
	if list[0].ID != c || list[1].ID != b || list[2].ID != a {
		t.Errorf("unexpected order: %d, %d, %d", list[0].ID, list[1].ID, list[2].ID)
	}

	empty, _ := db.ListDiagrams(ctx, 99)
	if empty == nil || len(empty) != 0 {
		t.Error("expected empty non-nil slice")
	}
}

func TestSessionRepository(t *testing.T) {
	db := New()
	repo := db.NewSessionRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, 1, "tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, 1, "old", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	s, _ := repo.GetByToken(ctx, "old")
	if s == nil {
		t.Fatal("expired session should still be returned")
	}

	_ = repo.DeleteExpired(ctx)
	if s, _ := repo.GetByToken(ctx, "old"); s != nil {
		t.Error("expired session should be swept")
	}
	if s, _ := repo.GetByToken(ctx, "tok"); s == nil || s.UserID != 1 {
		t.Errorf("unexpected session: %+v", s)
	}

	_ = repo.Delete(ctx, "tok")
	if s, _ := repo.GetByToken(ctx, "tok"); s != nil {
		t.Error("session should be deleted")
	}
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	db := New()
	ctx := context.Background()

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := db.CreateDiagram(ctx, 1, "d", "<x/>", time.Now())
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}
