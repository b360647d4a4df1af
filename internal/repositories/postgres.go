package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/membernet/backend/internal/db"
	"github.com/membernet/backend/internal/models"
)

const memberColumns = `id, username, first_name, last_name, email, password_hash, avatar_url,
        pending_friend_requests, friends, created_at, updated_at`

// PostgresMemberRepository provides PostgreSQL-backed persistence for members.
type PostgresMemberRepository struct {
	pool db.Pool
}

// NewPostgresMemberRepository constructs a member repository backed by PostgreSQL.
func NewPostgresMemberRepository(pool db.Pool) *PostgresMemberRepository {
	return &PostgresMemberRepository{pool: pool}
}

// Create persists a new member record.
func (r *PostgresMemberRepository) Create(ctx context.Context, member models.Member) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO members (id, username, first_name, last_name, email, password_hash, avatar_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, member.ID, member.Username, member.FirstName, member.LastName, member.Email, member.Password, member.AvatarURL, member.CreatedAt, member.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert member: %w", err)
	}

	return nil
}

// FindByID fetches a member by their identifier.
func (r *PostgresMemberRepository) FindByID(ctx context.Context, id string) (models.Member, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Member{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+memberColumns+`
        FROM members
        WHERE id = $1
    `, id)

	return scanMember(row)
}

// FindByLogin fetches a member by username or email address.
func (r *PostgresMemberRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (models.Member, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Member{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+memberColumns+`
        FROM members
        WHERE username = $1 OR email = $1
    `, usernameOrEmail)

	return scanMember(row)
}

// UpdateProfile modifies the mutable profile fields of a member record.
func (r *PostgresMemberRepository) UpdateProfile(ctx context.Context, member models.Member) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE members
        SET first_name = $2, last_name = $3, updated_at = $4
        WHERE id = $1
    `, member.ID, member.FirstName, member.LastName, member.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update member profile: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored password hash for a member.
func (r *PostgresMemberRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE members
        SET password_hash = $2, updated_at = now()
        WHERE id = $1
    `, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update member password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetAvatarURL records the object-store location of a member's avatar.
func (r *PostgresMemberRepository) SetAvatarURL(ctx context.Context, id, avatarURL string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE members
        SET avatar_url = $2, updated_at = now()
        WHERE id = $1
    `, id, avatarURL)
	if err != nil {
		return fmt.Errorf("update member avatar: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Search returns members whose username or name matches the query prefix,
// ordered for stable search-as-you-type results.
func (r *PostgresMemberRepository) Search(ctx context.Context, query string, limit int) ([]models.Member, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if limit <= 0 {
		limit = 20
	}

	rows, err := conn.Query(ctx, `
        SELECT `+memberColumns+`
        FROM members
        WHERE username ILIKE $1 || '%'
           OR first_name ILIKE $1 || '%'
           OR last_name ILIKE $1 || '%'
        ORDER BY username
        LIMIT $2
    `, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}

func scanMember(row pgx.Row) (models.Member, error) {
	var member models.Member
	err := row.Scan(
		&member.ID, &member.Username, &member.FirstName, &member.LastName,
		&member.Email, &member.Password, &member.AvatarURL,
		&member.PendingFriendRequests, &member.Friends,
		&member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Member{}, ErrNotFound
		}
		return models.Member{}, fmt.Errorf("scan member: %w", err)
	}
	return member, nil
}

// PostgresPostRepository provides PostgreSQL-backed persistence for posts.
type PostgresPostRepository struct {
	pool db.Pool
}

// NewPostgresPostRepository constructs a post repository backed by PostgreSQL.
func NewPostgresPostRepository(pool db.Pool) *PostgresPostRepository {
	return &PostgresPostRepository{pool: pool}
}

// Create stores a new post record.
func (r *PostgresPostRepository) Create(ctx context.Context, post models.Post) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO posts (id, author_id, body, created_at)
        VALUES ($1, $2, $3, $4)
    `, post.ID, post.AuthorID, post.Body, post.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// ListFeed returns a reverse chronological feed of posts authored by the
// member and their confirmed friends.
func (r *PostgresPostRepository) ListFeed(ctx context.Context, memberID string) ([]models.Post, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT p.id, p.author_id, p.body, p.created_at
        FROM posts p
        WHERE p.author_id = $1
           OR p.author_id IN (
                SELECT unnest(friends) FROM members WHERE id = $1
           )
        ORDER BY p.created_at DESC
        LIMIT 100
    `, memberID)
	if err != nil {
		return nil, fmt.Errorf("query post feed: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.AuthorID, &post.Body, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post feed: %w", err)
	}

	return posts, nil
}

var _ MemberRepository = (*PostgresMemberRepository)(nil)
var _ PostRepository = (*PostgresPostRepository)(nil)
