package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	// ErrStockConflict means a guarded stock decrement matched no row.
	ErrStockConflict = errors.New("stock changed concurrently")
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups every table accessor bound to one connection or transaction.
type Repositories interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Guests() GuestRepository
	Users() UserRepository
	// LockOwner serializes cart work for one owner until the surrounding
	// transaction ends.
	LockOwner(ctx context.Context, key string) error
}

type Store interface {
	Repositories
	// WithTx runs fn in one transaction; an error from fn rolls everything back.
	WithTx(ctx context.Context, fn func(Repositories) error) error
}

type PgStore struct {
	pool *pgxpool.Pool
	queries
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, queries: queries{db: pool}}
}

func (s *PgStore) WithTx(ctx context.Context, fn func(Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type queries struct {
	db DBTX
}

func (q queries) Products() ProductRepository { return &productRepository{db: q.db} }
func (q queries) Carts() CartRepository       { return &cartRepository{db: q.db} }
func (q queries) Orders() OrderRepository     { return &orderRepository{db: q.db} }
func (q queries) Guests() GuestRepository     { return &guestRepository{db: q.db} }
func (q queries) Users() UserRepository       { return &userRepository{db: q.db} }

func (q queries) LockOwner(ctx context.Context, key string) error {
	if _, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("lock owner %s: %w", key, err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
