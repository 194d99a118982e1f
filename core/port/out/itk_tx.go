package out

import "context"

// TxRunner wraps fn in one database transaction: every repository call made
// with the derived context joins it, and the commit at the end is the unit of
// atomicity. A returned error rolls everything back.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
