// Package memory реализует хранилище модели чтения в памяти процесса.
// Используется для разработки, тестов и как хранилище по умолчанию.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/x-research-team/post-query/readmodel"
)

// Store - потокобезопасное хранилище постов в памяти.
// Порядок итерации совпадает с порядком первой вставки.
type Store struct {
	mu          sync.RWMutex
	posts       map[uuid.UUID]*readmodel.PostEntity
	order       []uuid.UUID
	byAuthor    map[string][]uuid.UUID
	unavailable error
}

var _ readmodel.Store = (*Store)(nil)

// NewStore создает хранилище, заполненное переданными постами.
func NewStore(posts ...readmodel.PostEntity) *Store {
	s := &Store{
		posts:    make(map[uuid.UUID]*readmodel.PostEntity),
		byAuthor: make(map[string][]uuid.UUID),
	}
	for _, p := range posts {
		s.Put(p)
	}
	return s
}

// Put вставляет или заменяет пост. Это не проектор событий: метод нужен для
// загрузки фикстур и тестов.
func (s *Store) Put(post readmodel.PostEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := post.Clone()
	if prev, ok := s.posts[post.PostID]; ok {
		if prev.Author != post.Author {
			s.removeFromAuthor(prev.Author, post.PostID)
			s.byAuthor[post.Author] = append(s.byAuthor[post.Author], post.PostID)
		}
	} else {
		s.order = append(s.order, post.PostID)
		s.byAuthor[post.Author] = append(s.byAuthor[post.Author], post.PostID)
	}
	s.posts[post.PostID] = &stored
}

// Len возвращает количество постов.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

// SetUnavailable имитирует недоступность хранилища: пока err не nil, все
// операции чтения возвращают его.
func (s *Store) SetUnavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = err
}

// All возвращает все посты.
func (s *Store) All(ctx context.Context) ([]readmodel.PostEntity, error) {
	return s.filter(ctx, s.allIDs, func(*readmodel.PostEntity) bool { return true })
}

// ByID возвращает пост по идентификатору.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (readmodel.PostEntity, bool, error) {
	if err := ctx.Err(); err != nil {
		return readmodel.PostEntity{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable != nil {
		return readmodel.PostEntity{}, false, s.unavailable
	}
	post, ok := s.posts[id]
	if !ok {
		return readmodel.PostEntity{}, false, nil
	}
	return post.Clone(), true, nil
}

// ByAuthor использует индекс по автору.
func (s *Store) ByAuthor(ctx context.Context, author string) ([]readmodel.PostEntity, error) {
	ids := func() []uuid.UUID { return s.byAuthor[author] }
	return s.filter(ctx, ids, func(p *readmodel.PostEntity) bool { return p.Author == author })
}

// WithComments делает полный просмотр.
func (s *Store) WithComments(ctx context.Context) ([]readmodel.PostEntity, error) {
	return s.filter(ctx, s.allIDs, func(p *readmodel.PostEntity) bool { return p.HasComments() })
}

// WithLikes делает полный просмотр.
func (s *Store) WithLikes(ctx context.Context, minLikes int) ([]readmodel.PostEntity, error) {
	return s.filter(ctx, s.allIDs, func(p *readmodel.PostEntity) bool { return p.Likes >= minLikes })
}

// filter обходит идентификаторы под блокировкой чтения и копирует подходящие посты.
// selectIDs вызывается под той же блокировкой.
func (s *Store) filter(ctx context.Context, selectIDs func() []uuid.UUID, keep func(*readmodel.PostEntity) bool) ([]readmodel.PostEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable != nil {
		return nil, s.unavailable
	}

	ids := selectIDs()
	result := make([]readmodel.PostEntity, 0, len(ids))
	for _, id := range ids {
		post, ok := s.posts[id]
		if !ok || !keep(post) {
			continue
		}
		result = append(result, post.Clone())
	}
	return result, nil
}

// allIDs возвращает порядок вставки; вызывается под блокировкой.
func (s *Store) allIDs() []uuid.UUID {
	return s.order
}

func (s *Store) removeFromAuthor(author string, id uuid.UUID) {
	ids := s.byAuthor[author]
	for i, existing := range ids {
		if existing == id {
			s.byAuthor[author] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byAuthor[author]) == 0 {
		delete(s.byAuthor, author)
	}
}
