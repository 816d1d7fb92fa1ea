package textbookrepo

import (
	"context"
	"fmt"
	"sync"

	"textbookindent/model"
)

// MemStore keeps the catalog and counters in memory. It backs the service
// tests and the local demo mode. Counter updates take a per-title mutex, so
// every reserve/release sequence on one textbook is totally ordered while
// distinct titles do not contend.
type MemStore struct {
	mu     sync.Mutex // guards the map and id assignment
	nextID int64
	books  map[int64]*memBook
}

type memBook struct {
	mu sync.Mutex // guards the counters of this one title
	tb model.Textbook
}

var _ Repo = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{books: map[int64]*memBook{}}
}

func (s *MemStore) Create(_ context.Context, tb *model.Textbook) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.tb.BranchID == tb.BranchID && b.tb.AcademicYear == tb.AcademicYear && b.tb.BookCode == tb.BookCode {
			return 0, ErrDuplicate
		}
	}
	s.nextID++
	cp := *tb
	cp.ID = s.nextID
	cp.AvailableQty = cp.TotalQty
	s.books[cp.ID] = &memBook{tb: cp}
	return cp.ID, nil
}

func (s *MemStore) get(id int64) (*memBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return b, nil
}

func (s *MemStore) Detail(_ context.Context, id int64) (*model.Textbook, error) {
	b, err := s.get(id)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := b.tb
	return &cp, nil
}

func (s *MemStore) ByCode(_ context.Context, branchID int64, year, code string) (*model.Textbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.tb.BranchID == branchID && b.tb.AcademicYear == year && b.tb.BookCode == code {
			cp := b.tb
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *MemStore) List(_ context.Context, branchID int64, year string) ([]model.Textbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Textbook
	for _, b := range s.books {
		if b.tb.BranchID == branchID && b.tb.AcademicYear == year {
			out = append(out, b.tb)
		}
	}
	return out, nil
}

func (s *MemStore) Reserve(_ context.Context, textbookID, qty int64) (int64, error) {
	b, err := s.get(textbookID)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tb.AvailableQty < qty {
		return 0, model.ErrInsufficientStock
	}
	b.tb.AvailableQty -= qty
	return b.tb.AvailableQty, nil
}

func (s *MemStore) Release(_ context.Context, textbookID, qty int64) error {
	b, err := s.get(textbookID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tb.AvailableQty+qty > b.tb.TotalQty {
		return fmt.Errorf("release of %d on textbook %d exceeds total: %w",
			qty, textbookID, model.ErrInvariantViolation)
	}
	b.tb.AvailableQty += qty
	return nil
}

func (s *MemStore) WriteOff(_ context.Context, textbookID, qty int64) error {
	b, err := s.get(textbookID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tb.TotalQty-qty < b.tb.AvailableQty {
		return fmt.Errorf("write-off of %d on textbook %d breaks counters: %w",
			qty, textbookID, model.ErrInvariantViolation)
	}
	b.tb.TotalQty -= qty
	return nil
}

func (s *MemStore) Restore(_ context.Context, textbookID, qty int64) error {
	b, err := s.get(textbookID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tb.TotalQty += qty
	return nil
}

func (s *MemStore) AddCopies(_ context.Context, textbookID, qty int64) (int64, error) {
	b, err := s.get(textbookID)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tb.TotalQty += qty
	b.tb.AvailableQty += qty
	return b.tb.AvailableQty, nil
}
