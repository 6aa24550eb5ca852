package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ternarybob/arbor"
)

func TestPoolRunsAllTasks(t *testing.T) {
	pool := NewPool(context.Background(), 3, arbor.NewLogger())
	pool.Start()

	var done int64
	for i := 0; i < 20; i++ {
		if err := pool.Submit(func(ctx context.Context) error {
			atomic.AddInt64(&done, 1)
			return nil
		}); err != nil {
			t.Fatalf("Submit returned %v", err)
		}
	}

	if errs := pool.Wait(); len(errs) != 0 {
		t.Fatalf("Wait returned errors: %v", errs)
	}
	if done != 20 {
		t.Errorf("done = %d, want 20", done)
	}
}

func TestPoolCollectsErrors(t *testing.T) {
	pool := NewPool(context.Background(), 2, arbor.NewLogger())
	pool.Start()

	boom := errors.New("boom")
	for i := 0; i < 5; i++ {
		i := i
		_ = pool.Submit(func(ctx context.Context) error {
			if i%2 == 0 {
				return boom
			}
			return nil
		})
	}

	errs := pool.Wait()
	if len(errs) != 3 {
		t.Errorf("got %d errors, want 3", len(errs))
	}
}

func TestPoolWaitIsABarrier(t *testing.T) {
	pool := NewPool(context.Background(), 4, arbor.NewLogger())
	pool.Start()

	slots := make([]bool, 10)
	for i := range slots {
		i := i
		_ = pool.Submit(func(ctx context.Context) error {
			slots[i] = true
			return nil
		})
	}
	pool.Wait()

	for i, filled := range slots {
		if !filled {
			t.Errorf("slot %d not written before Wait returned", i)
		}
	}
}

func TestPoolDefaultsWorkerCount(t *testing.T) {
	pool := NewPool(context.Background(), 0, arbor.NewLogger())
	pool.Start()
	_ = pool.Submit(func(ctx context.Context) error { return nil })
	pool.Wait()
}
