// Package wallet keeps a client-side mirror of the server-owned wallet
// balance. It is display state only; the backend remains the source of truth.
package wallet

import (
	"sync"

	"github.com/boostpanel/boostpanel/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	balance  int64
	deposits []domain.Deposit
}

func NewStore() *Store {
	return &Store{}
}

// SetBalance replaces the mirrored balance with the server-reported value.
func (s *Store) SetBalance(balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = balance
}

func (s *Store) Balance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// Credit records a resolved deposit. When the server reported the resulting
// balance it wins; otherwise the amount is applied locally.
func (s *Store) Credit(dep domain.Deposit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deposits = append(s.deposits, dep)
	if dep.Balance > 0 {
		s.balance = dep.Balance
	} else {
		s.balance += dep.Amount
	}
}

func (s *Store) Deposits() []domain.Deposit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Deposit, len(s.deposits))
	copy(out, s.deposits)
	return out
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = 0
	s.deposits = nil
}
