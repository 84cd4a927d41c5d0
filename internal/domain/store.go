package domain

import "context"

// Store groups both repositories behind one unit of work. Repositories handed
// out by the Store passed to fn share a single atomic scope: either every write
// made through them commits or none does.
type Store interface {
	Accounts() AccountStore
	Transactions() TransactionJournal
	WithTransaction(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}
