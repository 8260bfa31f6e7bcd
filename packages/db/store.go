package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/postcheck/packages/posts"
)

const schema = `CREATE TABLE IF NOT EXISTS posts (
	id      INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL DEFAULT 0,
	title   TEXT NOT NULL DEFAULT '',
	body    TEXT NOT NULL DEFAULT ''
)`

// PostStore keeps posts in a SQLite table.
type PostStore struct {
	client *Client
}

// OpenPostStore opens the database and creates the posts table if needed.
func OpenPostStore(ctx context.Context, connectionString string) (*PostStore, error) {
	client, err := NewClient(connectionString)
	if err != nil {
		return nil, err
	}
	if _, err := client.db.ExecContext(ctx, schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create posts table: %w", err)
	}
	return &PostStore{client: client}, nil
}

// Client returns the underlying database client.
func (s *PostStore) Client() *Client {
	return s.client
}

func (s *PostStore) Close() error {
	return s.client.Close()
}

func (s *PostStore) List(ctx context.Context) ([]posts.Post, error) {
	rows, err := s.client.db.QueryContext(ctx, `SELECT id, user_id, title, body FROM posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	list := make([]posts.Post, 0)
	for rows.Next() {
		var p posts.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Body); err != nil {
			return nil, fmt.Errorf("listing posts: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *PostStore) Get(ctx context.Context, id int64) (posts.Post, error) {
	return get(ctx, s.client.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryRower, id int64) (posts.Post, error) {
	var p posts.Post
	err := q.QueryRowContext(ctx, `SELECT id, user_id, title, body FROM posts WHERE id = ?`, id).
		Scan(&p.ID, &p.UserID, &p.Title, &p.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return posts.Post{}, posts.ErrPostNotFound
	}
	if err != nil {
		return posts.Post{}, fmt.Errorf("getting post %d: %w", id, err)
	}
	return p, nil
}

func (s *PostStore) Create(ctx context.Context, p posts.Post) (posts.Post, error) {
	var id any
	if p.ID != 0 {
		id = p.ID
	}

	res, err := s.client.db.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, title, body) VALUES (?, ?, ?, ?)`,
		id, p.UserID, p.Title, p.Body)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return posts.Post{}, posts.ErrDuplicateID
		}
		return posts.Post{}, fmt.Errorf("creating post: %w", err)
	}

	if p.ID == 0 {
		if p.ID, err = res.LastInsertId(); err != nil {
			return posts.Post{}, fmt.Errorf("creating post: %w", err)
		}
	}
	return p, nil
}

func (s *PostStore) Update(ctx context.Context, id int64, patch posts.PostPatch) (posts.Post, error) {
	tx, err := s.client.db.BeginTx(ctx, nil)
	if err != nil {
		return posts.Post{}, fmt.Errorf("updating post %d: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	p, err := get(ctx, tx, id)
	if err != nil {
		return posts.Post{}, err
	}
	p = patch.Apply(p)

	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET user_id = ?, title = ?, body = ? WHERE id = ?`,
		p.UserID, p.Title, p.Body, id); err != nil {
		return posts.Post{}, fmt.Errorf("updating post %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return posts.Post{}, fmt.Errorf("updating post %d: %w", id, err)
	}
	return p, nil
}

func (s *PostStore) Delete(ctx context.Context, id int64) error {
	res, err := s.client.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting post %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting post %d: %w", id, err)
	}
	if n == 0 {
		return posts.ErrPostNotFound
	}
	return nil
}

func (s *PostStore) Seed(ctx context.Context, list []posts.Post) error {
	tx, err := s.client.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seeding posts: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("seeding posts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO posts (id, user_id, title, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("seeding posts: %w", err)
	}
	defer stmt.Close()

	for _, p := range list {
		if _, err := stmt.ExecContext(ctx, p.ID, p.UserID, p.Title, p.Body); err != nil {
			if isPrimaryKeyViolation(err) {
				return posts.ErrDuplicateID
			}
			return fmt.Errorf("seeding post %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}
