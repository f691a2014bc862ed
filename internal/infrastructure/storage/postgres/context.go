package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"buildplus/internal/core/tenant"
)

// MustGetTxManager returns the *TxManager installed by the Database middleware.
// Repositories use it to reach GetQuerier; domain code depends on tx.Manager only.
func MustGetTxManager(ctx context.Context) *TxManager {
	txm := tenant.MustGetTxManager(ctx)
	postgresTxm, ok := txm.(*TxManager)
	if !ok || postgresTxm == nil {
		panic(fmt.Sprintf("TxManager in context has unexpected type: %T", txm))
	}
	return postgresTxm
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
