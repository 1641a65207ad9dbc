package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
	txcontext "zerina/pkg/platform/tx"
)

// StoreTx is the transactional boundary for one submission or review.
// Implementations serialize mutations per user and make the enclosed
// store operations atomic: SQL stores run inside a database
// transaction, the in-memory implementation holds a per-user lock.
type StoreTx interface {
	RunInTx(ctx context.Context, userID domain.UserID, fn func(ctx context.Context) error) error
}

const numTxShards = 128

const defaultTxTimeout = 5 * time.Second

// ShardedTx serializes transactions with sharded mutexes keyed by user
// ID. Used with the in-memory stores, where there is no database
// transaction to lean on.
type ShardedTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx() *ShardedTx {
	return &ShardedTx{timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, userID domain.UserID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := hashUserID(userID) % numTxShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

// hashUserID uses FNV-1a over the ID bytes.
func hashUserID(userID domain.UserID) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	s := userID.String()
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// SQLTx opens a database transaction and threads it through the
// context, where the Postgres stores pick it up. Row locks from the
// stores' FOR UPDATE reads provide the per-user serialization.
type SQLTx struct {
	db *sql.DB
}

func NewSQLTx(db *sql.DB) *SQLTx {
	return &SQLTx{db: db}
}

func (t *SQLTx) RunInTx(ctx context.Context, _ domain.UserID, fn func(ctx context.Context) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
