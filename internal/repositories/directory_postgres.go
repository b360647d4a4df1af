package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"

	"github.com/membernet/backend/internal/db"
	"github.com/membernet/backend/internal/friends"
	"github.com/membernet/backend/internal/models"
)

// PostgresDirectory implements the member-directory contract consumed by the
// friend relationship engine. Each mutation is a single guarded UPDATE and
// therefore atomic on its own; InTx composes mutations through a database
// transaction resolved by crdbpgx on every exit path, with automatic retry
// on serialization conflicts.
type PostgresDirectory struct {
	pool db.Pool
}

// NewPostgresDirectory constructs a directory backed by PostgreSQL.
func NewPostgresDirectory(pool db.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

// querier is satisfied by both pooled connections and pgx transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FindByID fetches a member record including its relationship fields.
func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (models.Member, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return models.Member{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return findMember(ctx, conn, id)
}

// AppendPendingRequest records senderID on the recipient's pending set.
func (d *PostgresDirectory) AppendPendingRequest(ctx context.Context, recipientID, senderID string) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return appendPendingRequest(ctx, conn, recipientID, senderID)
}

// RemovePendingRequest deletes senderID from the member's pending set.
func (d *PostgresDirectory) RemovePendingRequest(ctx context.Context, memberID, senderID string) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return removePendingRequest(ctx, conn, memberID, senderID)
}

// AppendFriend adds friendID to the member's friend set.
func (d *PostgresDirectory) AppendFriend(ctx context.Context, memberID, friendID string) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return appendFriend(ctx, conn, memberID, friendID)
}

// RemoveFriend deletes friendID from the member's friend set.
func (d *PostgresDirectory) RemoveFriend(ctx context.Context, memberID, friendID string) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return removeFriend(ctx, conn, memberID, friendID)
}

// InTx runs fn against a transaction-scoped directory view. crdbpgx owns the
// transaction handle: it commits on success, rolls back on any error, and
// retries the whole closure on serialization failures, so fn must be safe to
// re-run.
func (d *PostgresDirectory) InTx(ctx context.Context, fn func(tx friends.Directory) error) error {
	return crdbpgx.ExecuteTx(ctx, d.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&txDirectory{tx: tx})
	})
}

// txDirectory is the transaction-scoped view handed to InTx closures.
type txDirectory struct {
	tx pgx.Tx
}

func (d *txDirectory) FindByID(ctx context.Context, id string) (models.Member, error) {
	return findMember(ctx, d.tx, id)
}

func (d *txDirectory) AppendPendingRequest(ctx context.Context, recipientID, senderID string) error {
	return appendPendingRequest(ctx, d.tx, recipientID, senderID)
}

func (d *txDirectory) RemovePendingRequest(ctx context.Context, memberID, senderID string) error {
	return removePendingRequest(ctx, d.tx, memberID, senderID)
}

func (d *txDirectory) AppendFriend(ctx context.Context, memberID, friendID string) error {
	return appendFriend(ctx, d.tx, memberID, friendID)
}

func (d *txDirectory) RemoveFriend(ctx context.Context, memberID, friendID string) error {
	return removeFriend(ctx, d.tx, memberID, friendID)
}

// Nested transactions are not supported; mutations issued through a
// txDirectory already run inside the enclosing transaction.
func (d *txDirectory) InTx(ctx context.Context, fn func(tx friends.Directory) error) error {
	return fn(d)
}

func findMember(ctx context.Context, q querier, id string) (models.Member, error) {
	row := q.QueryRow(ctx, `
        SELECT `+memberColumns+`
        FROM members
        WHERE id = $1
    `, id)

	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Member{}, friends.ErrMemberNotFound
		}
		return models.Member{}, err
	}
	return member, nil
}

func appendPendingRequest(ctx context.Context, q querier, recipientID, senderID string) error {
	tag, err := q.Exec(ctx, `
        UPDATE members
        SET pending_friend_requests = array_append(pending_friend_requests, $2::UUID),
            updated_at = now()
        WHERE id = $1
          AND NOT ($2::UUID = ANY (pending_friend_requests))
    `, recipientID, senderID)
	if err != nil {
		return fmt.Errorf("append pending request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return existsOr(ctx, q, recipientID, friends.ErrDuplicateRequest)
	}

	return nil
}

func removePendingRequest(ctx context.Context, q querier, memberID, senderID string) error {
	tag, err := q.Exec(ctx, `
        UPDATE members
        SET pending_friend_requests = array_remove(pending_friend_requests, $2::UUID),
            updated_at = now()
        WHERE id = $1
          AND $2::UUID = ANY (pending_friend_requests)
    `, memberID, senderID)
	if err != nil {
		return fmt.Errorf("remove pending request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return existsOr(ctx, q, memberID, friends.ErrRequestNotFound)
	}

	return nil
}

func appendFriend(ctx context.Context, q querier, memberID, friendID string) error {
	tag, err := q.Exec(ctx, `
        UPDATE members
        SET friends = array_append(friends, $2::UUID),
            updated_at = now()
        WHERE id = $1
          AND NOT ($2::UUID = ANY (friends))
    `, memberID, friendID)
	if err != nil {
		return fmt.Errorf("append friend: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return existsOr(ctx, q, memberID, friends.ErrAlreadyFriends)
	}

	return nil
}

func removeFriend(ctx context.Context, q querier, memberID, friendID string) error {
	tag, err := q.Exec(ctx, `
        UPDATE members
        SET friends = array_remove(friends, $2::UUID),
            updated_at = now()
        WHERE id = $1
          AND $2::UUID = ANY (friends)
    `, memberID, friendID)
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return existsOr(ctx, q, memberID, friends.ErrNotFriends)
	}

	return nil
}

// existsOr disambiguates a zero-row guarded UPDATE: a missing member row
// maps to ErrMemberNotFound, an existing row means the guard rejected the
// mutation and presentErr applies.
func existsOr(ctx context.Context, q querier, memberID string, presentErr error) error {
	var exists bool
	if err := q.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)
    `, memberID).Scan(&exists); err != nil {
		return fmt.Errorf("check member exists: %w", err)
	}

	if !exists {
		return friends.ErrMemberNotFound
	}
	return presentErr
}

var _ friends.Directory = (*PostgresDirectory)(nil)
var _ friends.Directory = (*txDirectory)(nil)
