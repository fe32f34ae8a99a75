package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"icepay-gateway/pkg/database"
)

// postgresTransactionManager implements TransactionManager
type postgresTransactionManager struct {
	pool *pgxpool.Pool
}

func NewPostgresTransactionManager(pool *pgxpool.Pool) TransactionManager {
	return &postgresTransactionManager{pool: pool}
}

// RunInTx commits fn's writes together or not at all
func (m *postgresTransactionManager) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return database.WithTransaction(ctx, m.pool, fn)
}
