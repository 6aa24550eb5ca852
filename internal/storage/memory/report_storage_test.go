package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/models"
)

func TestReportStorageRoundTrip(t *testing.T) {
	store := NewReportStorage()
	ctx := context.Background()

	report := &models.CrisisReport{CrisisID: "crisis_1", CompanyName: "Acme Corp"}
	if err := store.Put(ctx, report); err != nil {
		t.Fatalf("Put returned %v", err)
	}

	got, err := store.Get(ctx, "crisis_1")
	if err != nil {
		t.Fatalf("Get returned %v", err)
	}
	if got.CompanyName != "Acme Corp" {
		t.Errorf("CompanyName = %q", got.CompanyName)
	}

	// The stored copy is independent of the caller's struct.
	report.CompanyName = "mutated"
	got2, _ := store.Get(ctx, "crisis_1")
	if got2.CompanyName != "Acme Corp" {
		t.Errorf("stored report aliased caller memory: %q", got2.CompanyName)
	}

	if err := store.Delete(ctx, "crisis_1"); err != nil {
		t.Fatalf("Delete returned %v", err)
	}
	if _, err := store.Get(ctx, "crisis_1"); !errors.Is(err, interfaces.ErrRunNotFound) {
		t.Errorf("Get after delete = %v, want ErrRunNotFound", err)
	}
}

func TestReportStorageMissing(t *testing.T) {
	store := NewReportStorage()
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, interfaces.ErrRunNotFound) {
		t.Errorf("Get = %v, want ErrRunNotFound", err)
	}
	if err := store.Delete(context.Background(), "nope"); !errors.Is(err, interfaces.ErrRunNotFound) {
		t.Errorf("Delete = %v, want ErrRunNotFound", err)
	}
}

func TestReportStorageConcurrentAccess(t *testing.T) {
	store := NewReportStorage()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%5))
			_ = store.Put(ctx, &models.CrisisReport{CrisisID: id})
			_, _ = store.Get(ctx, id)
		}(i)
	}
	wg.Wait()
}
