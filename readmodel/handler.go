package readmodel

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/x-research-team/post-query/bus/query"
)

// Dispatcher - шина запросов модели чтения постов.
type Dispatcher = query.IDispatcher[[]PostEntity]

// Handlers содержит по одному обработчику на каждый вариант запроса.
// Хранилище разделяется между обработчиками только на чтение; результаты
// между вызовами не кешируются.
type Handlers struct {
	store Store
}

// NewHandlers создает набор обработчиков поверх хранилища.
func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// Register регистрирует все обработчики в реестре.
func (h *Handlers) Register(reg *query.Registry[[]PostEntity]) error {
	handlers := map[query.Kind]query.Handler[[]PostEntity]{
		KindAllPosts:          query.Handle(h.FindAllPosts),
		KindPostByID:          query.Handle(h.FindPostByID),
		KindPostsByAuthor:     query.Handle(h.FindPostsByAuthor),
		KindPostsWithComments: query.Handle(h.FindPostsWithComments),
		KindPostsWithLikes:    query.Handle(h.FindPostsWithLikes),
	}

	for _, kind := range Kinds() {
		if err := reg.Register(kind, handlers[kind]); err != nil {
			return fmt.Errorf("не удалось зарегистрировать обработчик: %w", err)
		}
	}
	return nil
}

// NewDispatcher собирает проверенную таблицу диспетчеризации для хранилища.
func NewDispatcher(store Store, opts ...query.Option[[]PostEntity]) (Dispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("хранилище модели чтения не задано")
	}

	reg := query.NewRegistry[[]PostEntity](Kinds()...)
	if err := NewHandlers(store).Register(reg); err != nil {
		return nil, err
	}

	return reg.Build(opts...)
}

// FindAllPosts возвращает все посты. Пустое хранилище - пустой результат.
func (h *Handlers) FindAllPosts(ctx context.Context, q FindAllPosts) ([]PostEntity, error) {
	posts, err := h.store.All(ctx)
	if err != nil {
		return nil, query.StorageError("readmodel.FindAllPosts", q.Kind(), err)
	}
	return normalize(posts), nil
}

// FindPostByID возвращает не более одного поста.
// Отсутствующий пост - это пустой результат, а не ошибка.
func (h *Handlers) FindPostByID(ctx context.Context, q FindPostByID) ([]PostEntity, error) {
	if q.ID == uuid.Nil {
		return nil, query.InvalidQuery("readmodel.FindPostByID", q.Kind(), "идентификатор поста не задан")
	}

	post, found, err := h.store.ByID(ctx, q.ID)
	if err != nil {
		return nil, query.StorageError("readmodel.FindPostByID", q.Kind(), err)
	}
	if !found {
		return []PostEntity{}, nil
	}
	return []PostEntity{post}, nil
}

// FindPostsByAuthor возвращает посты с точным, чувствительным к регистру
// совпадением автора.
func (h *Handlers) FindPostsByAuthor(ctx context.Context, q FindPostsByAuthor) ([]PostEntity, error) {
	if q.Author == "" {
		return nil, query.InvalidQuery("readmodel.FindPostsByAuthor", q.Kind(), "автор не задан")
	}

	posts, err := h.store.ByAuthor(ctx, q.Author)
	if err != nil {
		return nil, query.StorageError("readmodel.FindPostsByAuthor", q.Kind(), err)
	}
	return normalize(posts), nil
}

// FindPostsWithComments возвращает посты, у которых есть комментарии.
func (h *Handlers) FindPostsWithComments(ctx context.Context, q FindPostsWithComments) ([]PostEntity, error) {
	posts, err := h.store.WithComments(ctx)
	if err != nil {
		return nil, query.StorageError("readmodel.FindPostsWithComments", q.Kind(), err)
	}
	return normalize(posts), nil
}

// FindPostsWithLikes возвращает посты, у которых лайков не меньше порога.
func (h *Handlers) FindPostsWithLikes(ctx context.Context, q FindPostsWithLikes) ([]PostEntity, error) {
	if q.NumberOfLikes < 0 {
		return nil, query.InvalidQuery("readmodel.FindPostsWithLikes", q.Kind(), "порог лайков не может быть отрицательным: %d", q.NumberOfLikes)
	}

	posts, err := h.store.WithLikes(ctx, q.NumberOfLikes)
	if err != nil {
		return nil, query.StorageError("readmodel.FindPostsWithLikes", q.Kind(), err)
	}
	return normalize(posts), nil
}

// normalize гарантирует, что пустой результат - это пустой срез, а не nil.
func normalize(posts []PostEntity) []PostEntity {
	if posts == nil {
		return []PostEntity{}
	}
	return posts
}
