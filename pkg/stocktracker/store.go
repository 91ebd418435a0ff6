package stocktracker

// TransactionStore is the ordered, append-only ledger. Implementations do not
// recompute holdings; the caller does that after each mutation.
type TransactionStore interface {
	// Append validates in, assigns a fresh ID and appends the record.
	Append(in TransactionInput) (Transaction, error)
	// Remove deletes the record with id. Removing an unknown id is a no-op.
	Remove(id string) error
	// List returns every record in insertion order.
	List() ([]Transaction, error)
	// Clear removes every record.
	Clear() error
}

// PriceBook persists the last known price per symbol.
type PriceBook interface {
	SavePrice(p PricePoint) error
	Prices() (map[string]PricePoint, error)
	ClearPrices() error
}
