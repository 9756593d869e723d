package service

import "context"

// TransactionManager runs a function inside one database transaction.
// The webhook service uses it so the record update and the invoice mark
// commit or roll back together.
type TransactionManager interface {
	// WithTransaction commits if fn returns nil, rolls back otherwise.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
