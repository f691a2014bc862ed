// Package tenant carries the company (tenant) boundary through request contexts.
// Every row in the operational schema belongs to exactly one company and every
// statement issued on behalf of a request is scoped by the company stored here.
package tenant

import (
	"context"
	"errors"

	"buildplus/internal/core/tx"
)

type ctxKey int

const (
	txManagerKey ctxKey = iota
	companyKey
)

var (
	ErrNoCompanyInContext = errors.New("company not found in context")
	ErrNoTxManager        = errors.New("transaction manager not found in context")
)

// Company identifies the tenant a request acts for.
type Company struct {
	ID string
}

// WithCompany stores the company in context.
func WithCompany(ctx context.Context, c *Company) context.Context {
	return context.WithValue(ctx, companyKey, c)
}

// GetCompany retrieves the company from context.
func GetCompany(ctx context.Context) *Company {
	c, _ := ctx.Value(companyKey).(*Company)
	return c
}

// GetCompanyID returns company ID or empty string.
func GetCompanyID(ctx context.Context) string {
	if c := GetCompany(ctx); c != nil {
		return c.ID
	}
	return ""
}

// RequireCompanyID returns the company ID or ErrNoCompanyInContext.
func RequireCompanyID(ctx context.Context) (string, error) {
	if id := GetCompanyID(ctx); id != "" {
		return id, nil
	}
	return "", ErrNoCompanyInContext
}

// WithTxManager stores TxManager in context.
func WithTxManager(ctx context.Context, txm tx.Manager) context.Context {
	return context.WithValue(ctx, txManagerKey, txm)
}

// GetTxManager retrieves TxManager from context.
func GetTxManager(ctx context.Context) (tx.Manager, error) {
	txm, ok := ctx.Value(txManagerKey).(tx.Manager)
	if !ok || txm == nil {
		return nil, ErrNoTxManager
	}
	return txm, nil
}

// MustGetTxManager retrieves TxManager or panics.
// A missing manager means the Database middleware was not installed.
func MustGetTxManager(ctx context.Context) tx.Manager {
	txm, err := GetTxManager(ctx)
	if err != nil {
		panic("TxManager not in context: " + err.Error())
	}
	return txm
}
