// Package store holds the in-memory, insertion-ordered transaction list that
// is the source of truth during a session.
package store

import (
	"sync"
	"time"

	"budgetlog/internal/core"
)

const (
	DateLayout  = "01/02/2006"
	TimeLayout  = "03:04 PM"
	StampLayout = "01/02/2006, 3:04:05 PM"
)

type Option func(*Store)

// WithClock sets the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSignPolicy sets how amount signs are checked on add and update.
func WithSignPolicy(p core.SignPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithCategories restricts add and update to categories known reports true for.
func WithCategories(known func(string) bool) Option {
	return func(s *Store) { s.known = known }
}

type Store struct {
	mu     sync.RWMutex
	items  []core.Transaction
	ids    *IDGenerator
	now    func() time.Time
	policy core.SignPolicy
	known  func(string) bool
}

func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.ids = NewIDGenerator(s.now)
	return s
}

// Add validates in and appends a new record with a fresh id.
func (s *Store) Add(in core.Input) (core.Transaction, error) {
	f, err := s.parse(in)
	if err != nil {
		return core.Transaction{}, err
	}

	now := s.now()
	t := core.Transaction{
		ID:        s.ids.Next(),
		Date:      now.Format(DateLayout),
		Time:      now.Format(TimeLayout),
		CreatedAt: now.Format(StampLayout),
	}
	t.Apply(f)

	s.mu.Lock()
	s.items = append(s.items, t)
	s.mu.Unlock()
	return t, nil
}

// Update replaces the mutable fields of record id and stamps EditedAt.
// The record keeps its id, creation timestamps and position. A missing id
// is reported as NotFoundError whether or not in is valid.
func (s *Store) Update(id int64, in core.Input) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, &core.NotFoundError{ID: id}
	}
	f, err := s.parse(in)
	if err != nil {
		return core.Transaction{}, err
	}
	s.items[i].Apply(f)
	s.items[i].EditedAt = s.now().Format(StampLayout)
	return s.items[i], nil
}

// Remove deletes record id and reports whether it existed. Removing an
// absent id is a no-op.
func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// List returns the records whose category equals filter, in insertion order.
// core.FilterAll or an empty filter returns everything.
func (s *Store) List(filter string) []core.Transaction {
	if filter == "" || filter == core.FilterAll {
		return s.All()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if t.Category == filter {
			out = append(out, t)
		}
	}
	return out
}

// All returns a copy of every record in insertion order.
func (s *Store) All() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Get(id int64) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, false
	}
	return s.items[i], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Replace swaps the contents for a loaded snapshot, keeping its order.
// Records whose id repeats an earlier one get a fresh id. It returns the
// number of ids reassigned.
func (s *Store) Replace(records []core.Transaction) int {
	for _, t := range records {
		s.ids.Observe(t.ID)
	}

	seen := make(map[int64]struct{}, len(records))
	items := make([]core.Transaction, 0, len(records))
	reassigned := 0
	for _, t := range records {
		if _, dup := seen[t.ID]; dup {
			t.ID = s.ids.Next()
			reassigned++
		}
		seen[t.ID] = struct{}{}
		items = append(items, t)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return reassigned
}

func (s *Store) parse(in core.Input) (core.Fields, error) {
	f, err := in.Parse(s.policy)
	if err != nil {
		return core.Fields{}, err
	}
	if s.known != nil && !s.known(f.Category) {
		return core.Fields{}, &core.ValidationError{Field: "category", Err: core.ErrUnknownCategory}
	}
	return f, nil
}

func (s *Store) indexOf(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
