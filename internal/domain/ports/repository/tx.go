package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and hands the
// transaction handle to fn as tx.
//
// Repositories accept tx on every method and MUST accept NoTX (nil) as the
// non-transactional path. The concrete type of tx is infra-defined
// (pgx.Tx for Postgres).
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		if err := subs.Create(ctx, tx, sub); err != nil {
//			return err
//		}
//		return nil
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
