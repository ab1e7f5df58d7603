// Package postgres реализует хранилище модели чтения постов поверх PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/x-research-team/post-query/readmodel"
)

const (
	// SQL-запрос для создания таблиц модели чтения.
	// Индексы соответствуют примитивам хранилища: по автору и по лайкам.
	createSchemaQuery = `
CREATE TABLE IF NOT EXISTS posts (
    post_id UUID PRIMARY KEY,
    author VARCHAR(255) NOT NULL,
    message TEXT NOT NULL,
    date_posted TIMESTAMPTZ NOT NULL,
    date_modified TIMESTAMPTZ NOT NULL,
    likes INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS comments (
    comment_id UUID PRIMARY KEY,
    post_id UUID NOT NULL REFERENCES posts (post_id) ON DELETE CASCADE,
    username VARCHAR(255) NOT NULL,
    comment TEXT NOT NULL,
    comment_date TIMESTAMPTZ NOT NULL,
    edited BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_posts_author ON posts (author);
CREATE INDEX IF NOT EXISTS idx_posts_likes ON posts (likes);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments (post_id);
`

	selectPostsQuery = `
SELECT post_id, author, message, date_posted, date_modified, likes
FROM posts`

	orderPosts = `
ORDER BY date_posted, post_id;`

	allPostsQuery = selectPostsQuery + orderPosts

	postByIDQuery = selectPostsQuery + `
WHERE post_id = $1;`

	postsByAuthorQuery = selectPostsQuery + `
WHERE author = $1` + orderPosts

	postsWithCommentsQuery = selectPostsQuery + `
WHERE EXISTS (SELECT 1 FROM comments c WHERE c.post_id = posts.post_id)` + orderPosts

	postsWithLikesQuery = selectPostsQuery + `
WHERE likes >= $1` + orderPosts

	// Комментарии дочитываются одним запросом для всей выборки постов.
	commentsQuery = `
SELECT comment_id, post_id, username, comment, comment_date, edited
FROM comments
WHERE post_id = ANY($1)
ORDER BY comment_date, comment_id;`
)

// Store представляет собой реализацию хранилища модели чтения для PostgreSQL.
type Store struct {
	q Querier
}

var _ readmodel.Store = (*Store)(nil)

// Option настраивает создание Store.
type Option func(*options)

type options struct {
	migrate bool
}

// WithSchema включает создание таблиц при старте, если их нет.
func WithSchema() Option {
	return func(o *options) {
		o.migrate = true
	}
}

// Open создает пул соединений и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать пул соединений: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}
	return pool, nil
}

// NewStore создает новый экземпляр Store поверх пула или транзакции.
func NewStore(ctx context.Context, q Querier, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.migrate {
		if _, err := q.Exec(ctx, createSchemaQuery); err != nil {
			return nil, fmt.Errorf("не удалось создать таблицы модели чтения: %w", err)
		}
	}
	return &Store{q: q}, nil
}

// All возвращает все посты.
func (s *Store) All(ctx context.Context) ([]readmodel.PostEntity, error) {
	return s.queryPosts(ctx, allPostsQuery)
}

// ByID возвращает пост по идентификатору.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (readmodel.PostEntity, bool, error) {
	p := readmodel.PostEntity{Comments: []readmodel.CommentEntity{}}
	err := s.q.QueryRow(ctx, postByIDQuery, id).
		Scan(&p.PostID, &p.Author, &p.Message, &p.DatePosted, &p.DateModified, &p.Likes)
	if errors.Is(err, pgx.ErrNoRows) {
		return readmodel.PostEntity{}, false, nil
	}
	if err != nil {
		return readmodel.PostEntity{}, false, fmt.Errorf("не удалось выбрать пост %s: %w", id, err)
	}

	posts := []readmodel.PostEntity{p}
	if err := s.attachComments(ctx, posts); err != nil {
		return readmodel.PostEntity{}, false, err
	}
	return posts[0], true, nil
}

// ByAuthor возвращает посты автора; сравнение выполняет база, оно чувствительно к регистру.
func (s *Store) ByAuthor(ctx context.Context, author string) ([]readmodel.PostEntity, error) {
	return s.queryPosts(ctx, postsByAuthorQuery, author)
}

// WithComments возвращает посты, у которых есть комментарии.
func (s *Store) WithComments(ctx context.Context) ([]readmodel.PostEntity, error) {
	return s.queryPosts(ctx, postsWithCommentsQuery)
}

// WithLikes возвращает посты, у которых лайков не меньше minLikes.
func (s *Store) WithLikes(ctx context.Context, minLikes int) ([]readmodel.PostEntity, error) {
	return s.queryPosts(ctx, postsWithLikesQuery, minLikes)
}

// queryPosts выполняет выборку постов и дочитывает их комментарии.
func (s *Store) queryPosts(ctx context.Context, sql string, args ...any) ([]readmodel.PostEntity, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("не удалось выбрать посты: %w", err)
	}

	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (readmodel.PostEntity, error) {
		var p readmodel.PostEntity
		err := row.Scan(&p.PostID, &p.Author, &p.Message, &p.DatePosted, &p.DateModified, &p.Likes)
		p.Comments = []readmodel.CommentEntity{}
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать посты: %w", err)
	}
	if len(posts) == 0 {
		return posts, nil
	}

	if err := s.attachComments(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachComments загружает комментарии всех постов одним запросом.
func (s *Store) attachComments(ctx context.Context, posts []readmodel.PostEntity) error {
	ids := make([]uuid.UUID, len(posts))
	index := make(map[uuid.UUID]int, len(posts))
	for i, p := range posts {
		ids[i] = p.PostID
		index[p.PostID] = i
	}

	rows, err := s.q.Query(ctx, commentsQuery, ids)
	if err != nil {
		return fmt.Errorf("не удалось выбрать комментарии: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c readmodel.CommentEntity
		if err := rows.Scan(&c.CommentID, &c.PostID, &c.Username, &c.Comment, &c.CommentDate, &c.Edited); err != nil {
			return fmt.Errorf("не удалось сканировать комментарий: %w", err)
		}
		if i, ok := index[c.PostID]; ok {
			posts[i].Comments = append(posts[i].Comments, c)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("ошибка при итерации по комментариям: %w", err)
	}
	return nil
}
