package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"limitswap/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openBackends returns a fresh instance of every Store backend, each rooted
// in its own temp directory.
func openBackends(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "orders.json"), discardLogger())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ss, err := NewSQLiteStore(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		fs.Close()
		ss.Close()
	})
	return map[string]Store{"file": fs, "sqlite": ss}
}

func newPendingOrder(direction domain.Direction, amount, trigger float64) *domain.Order {
	return &domain.Order{
		WalletName:    "main",
		WalletAddress: "0x1111111111111111111111111111111111111111",
		Direction:     direction,
		Amount:        amount,
		TriggerPrice:  trigger,
		Status:        domain.StatusPending,
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStoreCreateAssignsIncreasingIDs(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var last int64
			for i := 0; i < 3; i++ {
				o := newPendingOrder(domain.DirectionAcquire, 100, 850)
				if err := s.Create(ctx, o); err != nil {
					t.Fatalf("Create: %v", err)
				}
				if o.ID <= last {
					t.Fatalf("id %d not greater than previous %d", o.ID, last)
				}
				last = o.ID
			}
		})
	}
}

func TestStoreGet(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			o := newPendingOrder(domain.DirectionDispose, 5, 900)
			o.LinkedOrderID = 0
			if err := s.Create(ctx, o); err != nil {
				t.Fatalf("Create: %v", err)
			}

			got, err := s.Get(ctx, o.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Direction != domain.DirectionDispose {
				t.Errorf("Direction = %q, want dispose", got.Direction)
			}
			if got.Amount != 5 || got.TriggerPrice != 900 {
				t.Errorf("Amount/Trigger = %v/%v, want 5/900", got.Amount, got.TriggerPrice)
			}
			if !got.CreatedAt.Equal(o.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, o.CreatedAt)
			}

			if _, err := s.Get(ctx, 9999); !errors.Is(err, domain.ErrOrderNotFound) {
				t.Errorf("Get(9999) error = %v, want ErrOrderNotFound", err)
			}
		})
	}
}

func TestStoreListByStatus(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			pending := newPendingOrder(domain.DirectionAcquire, 100, 850)
			if err := s.Create(ctx, pending); err != nil {
				t.Fatalf("Create: %v", err)
			}
			waiting := newPendingOrder(domain.DirectionDispose, 5, 900)
			waiting.Status = domain.StatusWaiting
			if err := s.Create(ctx, waiting); err != nil {
				t.Fatalf("Create: %v", err)
			}

			got, err := s.ListByStatus(ctx, domain.StatusPending)
			if err != nil {
				t.Fatalf("ListByStatus: %v", err)
			}
			if len(got) != 1 || got[0].ID != pending.ID {
				t.Errorf("ListByStatus(pending) = %v orders, want just id %d", len(got), pending.ID)
			}

			all, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("List returned %d orders, want 2", len(all))
			}
			if all[0].ID >= all[1].ID {
				t.Errorf("List not sorted by id: %d, %d", all[0].ID, all[1].ID)
			}
		})
	}
}

func TestStoreMutateCommit(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			o := newPendingOrder(domain.DirectionAcquire, 100, 850)
			if err := s.Create(ctx, o); err != nil {
				t.Fatalf("Create: %v", err)
			}

			execAt := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
			err := s.Mutate(ctx, func(txn Txn) error {
				cur, err := txn.Get(o.ID)
				if err != nil {
					return err
				}
				cur.Status = domain.StatusExecuted
				cur.ExecutedAt = execAt
				cur.ExecutionPrice = 848.5
				cur.ActualOutput = 0.1178
				cur.TxRef = "0xdeadbeef"
				return txn.Put(cur)
			})
			if err != nil {
				t.Fatalf("Mutate: %v", err)
			}

			got, err := s.Get(ctx, o.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != domain.StatusExecuted {
				t.Errorf("Status = %q, want executed", got.Status)
			}
			if !got.ExecutedAt.Equal(execAt) {
				t.Errorf("ExecutedAt = %v, want %v", got.ExecutedAt, execAt)
			}
			if got.ActualOutput != 0.1178 {
				t.Errorf("ActualOutput = %v, want 0.1178", got.ActualOutput)
			}
		})
	}
}

func TestStoreMutateRollback(t *testing.T) {
	boom := errors.New("boom")

	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			o := newPendingOrder(domain.DirectionAcquire, 100, 850)
			if err := s.Create(ctx, o); err != nil {
				t.Fatalf("Create: %v", err)
			}

			err := s.Mutate(ctx, func(txn Txn) error {
				cur, err := txn.Get(o.ID)
				if err != nil {
					return err
				}
				cur.Status = domain.StatusCancelled
				if err := txn.Put(cur); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("Mutate error = %v, want boom", err)
			}

			got, err := s.Get(ctx, o.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != domain.StatusPending {
				t.Errorf("Status after rollback = %q, want pending", got.Status)
			}
		})
	}
}

func TestStoreMutateAll(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				if err := s.Create(ctx, newPendingOrder(domain.DirectionAcquire, 100, 850)); err != nil {
					t.Fatalf("Create: %v", err)
				}
			}

			err := s.Mutate(ctx, func(txn Txn) error {
				all, err := txn.All()
				if err != nil {
					return err
				}
				if len(all) != 3 {
					t.Errorf("All returned %d orders, want 3", len(all))
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Mutate: %v", err)
			}
		})
	}
}

func TestFileStoreReloadsFromDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.json")

	s1, err := NewFileStore(path, discardLogger())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	o := newPendingOrder(domain.DirectionDispose, 5, 900)
	if err := s1.Create(ctx, o); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := NewFileStore(path, discardLogger())
	if err != nil {
		t.Fatalf("NewFileStore (reopen): %v", err)
	}
	defer s2.Close()

	got, err := s2.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if got.Amount != 5 || got.TriggerPrice != 900 {
		t.Errorf("reloaded order = %+v, want amount 5 trigger 900", got)
	}

	// A new order after reload must not reuse the old id.
	o2 := newPendingOrder(domain.DirectionAcquire, 100, 850)
	if err := s2.Create(ctx, o2); err != nil {
		t.Fatalf("Create after reload: %v", err)
	}
	if o2.ID <= o.ID {
		t.Errorf("id after reload = %d, want > %d", o2.ID, o.ID)
	}
}

func TestFileStoreCopiesOnRead(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "orders.json"), discardLogger())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	o := newPendingOrder(domain.DirectionAcquire, 100, 850)
	if err := s.Create(ctx, o); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _ := s.Get(ctx, o.ID)
	got.Status = domain.StatusCancelled // mutating the copy must not leak

	again, _ := s.Get(ctx, o.ID)
	if again.Status != domain.StatusPending {
		t.Errorf("store state mutated through returned copy: %q", again.Status)
	}
}
