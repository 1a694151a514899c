package ports

import "context"

// UnitOfWork defines a transaction boundary.
//
// fn receives stores bound to the transaction. Returning an error rolls back,
// returning nil commits.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error
}
