package stocktracker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps the ledger and prices in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	txs    []Transaction
	prices map[string]PricePoint
	now    func() time.Time
}

var (
	_ TransactionStore = (*MemoryStore)(nil)
	_ PriceBook        = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prices: map[string]PricePoint{}, now: time.Now}
}

// Append validates in and appends it to the ledger.
func (s *MemoryStore) Append(in TransactionInput) (Transaction, error) {
	in, err := normalizeTransactionInput(in, s.now())
	if err != nil {
		return Transaction{}, err
	}
	tx := Transaction{
		ID:     uuid.NewString(),
		Symbol: in.Symbol,
		Kind:   in.Kind,
		Shares: in.Shares,
		Price:  in.Price,
		Fee:    in.Fee,
		Date:   in.Date,
		Notes:  in.Notes,
	}
	s.mu.Lock()
	s.txs = append(s.txs, tx)
	s.mu.Unlock()
	return tx, nil
}

// Remove deletes the transaction with id if present.
func (s *MemoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs {
		if tx.ID == id {
			s.txs = append(s.txs[:i:i], s.txs[i+1:]...)
			return nil
		}
	}
	return nil
}

// List returns a copy of the ledger in insertion order.
func (s *MemoryStore) List() ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transaction{}, s.txs...), nil
}

// Clear drops every transaction.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.txs = nil
	s.mu.Unlock()
	return nil
}

// SavePrice records the latest price of a symbol.
func (s *MemoryStore) SavePrice(p PricePoint) error {
	s.mu.Lock()
	s.prices[p.Symbol] = p
	s.mu.Unlock()
	return nil
}

// Prices returns a copy of every known price.
func (s *MemoryStore) Prices() (map[string]PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]PricePoint, len(s.prices))
	for k, v := range s.prices {
		out[k] = v
	}
	return out, nil
}

// ClearPrices drops every known price.
func (s *MemoryStore) ClearPrices() error {
	s.mu.Lock()
	s.prices = map[string]PricePoint{}
	s.mu.Unlock()
	return nil
}
