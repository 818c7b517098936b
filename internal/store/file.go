package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"limitswap/internal/domain"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// fileSnapshot is the on-disk layout of the order file.
type fileSnapshot struct {
	NextID int64           `json:"next_id"`
	Orders []*domain.Order `json:"orders"`
}

// FileStore keeps all orders in memory and writes a JSON snapshot after every
// change. The snapshot is replaced atomically (write temp, rename) so a crash
// mid-write never corrupts the file.
type FileStore struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	nextID int64
	path   string
	log    *slog.Logger
}

// NewFileStore creates a FileStore, loading persisted state from path if it
// exists.
func NewFileStore(path string, log *slog.Logger) (*FileStore, error) {
	s := &FileStore{
		orders: make(map[int64]*domain.Order),
		nextID: 1,
		path:   path,
		log:    log,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Create assigns the order a fresh id and persists it.
func (s *FileStore) Create(_ context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = s.nextID
	s.nextID++

	cp := *o
	s.orders[o.ID] = &cp
	return s.flush()
}

// Get returns a copy of the order with the given id.
func (s *FileStore) Get(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

// List returns copies of all orders sorted by id.
func (s *FileStore) List(_ context.Context) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(*domain.Order) bool { return true }), nil
}

// ListByStatus returns copies of all orders in the given status sorted by id.
func (s *FileStore) ListByStatus(_ context.Context, status domain.Status) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(o *domain.Order) bool { return o.Status == status }), nil
}

// listLocked filters and sorts. Must be called with mu held.
func (s *FileStore) listLocked(keep func(*domain.Order) bool) []*domain.Order {
	out := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Mutate runs fn against a staged view of the store. Puts are collected and
// applied only when fn returns nil, followed by a single snapshot flush.
func (s *FileStore) Mutate(_ context.Context, fn func(Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := &fileTxn{store: s, staged: make(map[int64]*domain.Order)}
	if err := fn(txn); err != nil {
		return err
	}
	if len(txn.staged) == 0 {
		return nil
	}
	for id, o := range txn.staged {
		s.orders[id] = o
	}
	return s.flush()
}

// Close flushes the current state one last time.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// fileTxn stages order writes against a FileStore. Reads see staged writes.
type fileTxn struct {
	store  *FileStore
	staged map[int64]*domain.Order
}

func (t *fileTxn) Get(id int64) (*domain.Order, error) {
	if o, ok := t.staged[id]; ok {
		cp := *o
		return &cp, nil
	}
	o, ok := t.store.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *fileTxn) Put(o *domain.Order) error {
	if o.ID == 0 {
		return fmt.Errorf("put: order has no id")
	}
	cp := *o
	t.staged[o.ID] = &cp
	return nil
}

func (t *fileTxn) All() ([]*domain.Order, error) {
	seen := make(map[int64]bool, len(t.staged))
	out := make([]*domain.Order, 0, len(t.store.orders))
	for id, o := range t.staged {
		cp := *o
		out = append(out, &cp)
		seen[id] = true
	}
	for id, o := range t.store.orders {
		if !seen[id] {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// load reads the JSON snapshot into memory. A missing file starts empty.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing order file %s: %w", s.path, err)
	}

	for _, o := range snap.Orders {
		s.orders[o.ID] = o
		if o.ID >= s.nextID {
			s.nextID = o.ID + 1
		}
	}
	if snap.NextID > s.nextID {
		s.nextID = snap.NextID
	}
	s.log.Info("loaded order file", "orders", len(s.orders), "next_id", s.nextID)
	return nil
}

// flush writes the in-memory state to disk atomically. Must be called with mu
// held.
func (s *FileStore) flush() error {
	snap := fileSnapshot{
		NextID: s.nextID,
		Orders: s.listLocked(func(*domain.Order) bool { return true }),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
