package readmodel

import (
	"context"

	"github.com/google/uuid"
)

// Store определяет примитивы чтения хранилища модели.
// Реализации обязаны учитывать отмену контекста и не должны возвращать
// срезы, изменение которых затронет состояние хранилища.
type Store interface {
	// All возвращает все посты в порядке итерации хранилища.
	All(ctx context.Context) ([]PostEntity, error)

	// ByID возвращает пост по идентификатору; found=false, если поста нет.
	ByID(ctx context.Context, id uuid.UUID) (post PostEntity, found bool, err error)

	// ByAuthor возвращает посты, автор которых точно совпадает с author.
	ByAuthor(ctx context.Context, author string) ([]PostEntity, error)

	// WithComments возвращает посты, у которых есть хотя бы один комментарий.
	WithComments(ctx context.Context) ([]PostEntity, error)

	// WithLikes возвращает посты, у которых Likes >= minLikes.
	WithLikes(ctx context.Context, minLikes int) ([]PostEntity, error)
}
