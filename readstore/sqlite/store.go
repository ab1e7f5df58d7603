// Package sqlite реализует хранилище модели чтения поверх SQLite.
// Схема создается миграциями goose, встроенными в бинарник.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // драйвер SQLite без cgo

	"github.com/x-research-team/post-query/readmodel"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	selectPostsQuery = `
SELECT post_id, author, message, date_posted, date_modified, likes
FROM posts`

	orderPosts = `
ORDER BY date_posted, post_id`

	allPostsQuery = selectPostsQuery + orderPosts

	postByIDQuery = selectPostsQuery + `
WHERE post_id = ?`

	postsByAuthorQuery = selectPostsQuery + `
WHERE author = ?` + orderPosts

	postsWithCommentsQuery = selectPostsQuery + `
WHERE EXISTS (SELECT 1 FROM comments c WHERE c.post_id = posts.post_id)` + orderPosts

	postsWithLikesQuery = selectPostsQuery + `
WHERE likes >= ?` + orderPosts

	// Список плейсхолдеров подставляется по размеру пачки.
	commentsQuery = `
SELECT comment_id, post_id, username, comment, comment_date, edited
FROM comments
WHERE post_id IN (%s)
ORDER BY comment_date, comment_id`

	upsertPostQuery = `
INSERT INTO posts (post_id, author, message, date_posted, date_modified, likes)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (post_id) DO UPDATE SET
    author = excluded.author,
    message = excluded.message,
    date_posted = excluded.date_posted,
    date_modified = excluded.date_modified,
    likes = excluded.likes`

	deleteCommentsQuery = `DELETE FROM comments WHERE post_id = ?`

	insertCommentQuery = `
INSERT INTO comments (comment_id, post_id, username, comment, comment_date, edited)
VALUES (?, ?, ?, ?, ?, ?)`
)

// commentsBatch ограничивает число параметров в одном запросе комментариев.
// SQLite отклоняет запрос, если переменных больше SQLITE_MAX_VARIABLE_NUMBER.
const commentsBatch = 500

// Store - хранилище модели чтения в SQLite.
type Store struct {
	db    *sql.DB
	batch int
}

var _ readmodel.Store = (*Store)(nil)

// Open открывает файл базы и проверяет соединение.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть базу %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("база %s недоступна: %w", path, err)
	}
	return db, nil
}

// Migrate применяет все недостающие миграции схемы.
// Возвращает количество примененных миграций.
func Migrate(ctx context.Context, db *sql.DB) (int, error) {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("не удалось прочитать миграции: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return 0, fmt.Errorf("не удалось создать провайдер миграций: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("не удалось применить миграции: %w", err)
	}
	return len(results), nil
}

// NewStore создает хранилище поверх открытой базы.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, batch: commentsBatch}
}

// All возвращает все посты.
func (s *Store) All(ctx context.Context) ([]readmodel.PostEntity, error) {
	return s.queryPosts(ctx, allPostsQuery)
}

// ByID возвращает пост по идентификатору.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (readmodel.PostEntity, bool, error) {
	posts, err := s.queryPosts(ctx, postByIDQuery, id.String())
	if err != nil {
		return readmodel.PostEntity{}, false, err
	}
	if len(posts) == 0 {
		return readmodel.PostEntity{}, false, nil
	}
	return posts[0], true, nil
}

// ByAuthor возвращает посты автора. Оператор = в SQLite для TEXT
// сравнивает с учетом регистра.
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

// Seed вставляет или заменяет посты вместе с комментариями в одной транзакции.
// Используется для загрузки фикстур, проекцией событий не является.
func (s *Store) Seed(ctx context.Context, posts ...readmodel.PostEntity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range posts {
		if _, err := tx.ExecContext(ctx, upsertPostQuery,
			p.PostID.String(), p.Author, p.Message, p.DatePosted.UTC(), p.DateModified.UTC(), p.Likes); err != nil {
			return fmt.Errorf("не удалось сохранить пост %s: %w", p.PostID, err)
		}
		if _, err := tx.ExecContext(ctx, deleteCommentsQuery, p.PostID.String()); err != nil {
			return fmt.Errorf("не удалось очистить комментарии поста %s: %w", p.PostID, err)
		}
		for _, c := range p.Comments {
			if _, err := tx.ExecContext(ctx, insertCommentQuery,
				c.CommentID.String(), p.PostID.String(), c.Username, c.Comment, c.CommentDate.UTC(), c.Edited); err != nil {
				return fmt.Errorf("не удалось сохранить комментарий %s: %w", c.CommentID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return nil
}

// queryPosts выполняет выборку постов и дочитывает их комментарии.
func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]readmodel.PostEntity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("не удалось выбрать посты: %w", err)
	}
	defer rows.Close()

	posts := []readmodel.PostEntity{}
	for rows.Next() {
		p := readmodel.PostEntity{Comments: []readmodel.CommentEntity{}}
		if err := rows.Scan(&p.PostID, &p.Author, &p.Message, &p.DatePosted, &p.DateModified, &p.Likes); err != nil {
			return nil, fmt.Errorf("не удалось сканировать пост: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по постам: %w", err)
	}
	if len(posts) == 0 {
		return posts, nil
	}

	if err := s.attachComments(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachComments загружает комментарии постов пачками по s.batch
// идентификаторов. Каждый пост попадает ровно в одну пачку, поэтому порядок
// его комментариев сохраняется.
func (s *Store) attachComments(ctx context.Context, posts []readmodel.PostEntity) error {
	index := make(map[uuid.UUID]int, len(posts))
	for i, p := range posts {
		index[p.PostID] = i
	}

	size := s.batch
	if size <= 0 {
		size = commentsBatch
	}
	for start := 0; start < len(posts); start += size {
		end := min(start+size, len(posts))
		if err := s.attachCommentsBatch(ctx, posts, posts[start:end], index); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) attachCommentsBatch(ctx context.Context, posts, batch []readmodel.PostEntity, index map[uuid.UUID]int) error {
	args := make([]any, len(batch))
	for i, p := range batch {
		args[i] = p.PostID.String()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(commentsQuery, placeholders), args...)
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
