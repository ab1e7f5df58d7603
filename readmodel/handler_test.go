package readmodel_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/post-query/bus/query"
	"github.com/x-research-team/post-query/readmodel"
	"github.com/x-research-team/post-query/readstore/memory"
)

var (
	idA = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idB = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	idC = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

// scenarioStore: A(alice, 0 комментариев, 5 лайков), B(bob, 2 комментария, 0 лайков).
func scenarioStore() *memory.Store {
	return memory.NewStore(
		readmodel.PostEntity{PostID: idA, Author: "alice", Likes: 5},
		readmodel.PostEntity{PostID: idB, Author: "bob", Likes: 0, Comments: []readmodel.CommentEntity{
			{CommentID: uuid.New(), PostID: idB, Username: "alice", Comment: "1"},
			{CommentID: uuid.New(), PostID: idB, Username: "carol", Comment: "2"},
		}},
	)
}

func newDispatcher(t *testing.T, store readmodel.Store) readmodel.Dispatcher {
	t.Helper()
	d, err := readmodel.NewDispatcher(store, query.WithLogger[[]readmodel.PostEntity](nil))
	require.NoError(t, err)
	return d
}

func postIDs(posts []readmodel.PostEntity) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.PostID)
	}
	return ids
}

func TestDispatcher_Scenario(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, scenarioStore())
	ctx := context.Background()

	tests := []struct {
		name  string
		query query.Query
		want  []uuid.UUID
	}{
		{name: "все посты", query: readmodel.FindAllPosts{}, want: []uuid.UUID{idA, idB}},
		{name: "по автору alice", query: readmodel.FindPostsByAuthor{Author: "alice"}, want: []uuid.UUID{idA}},
		{name: "с комментариями", query: readmodel.FindPostsWithComments{}, want: []uuid.UUID{idB}},
		{name: "лайков не меньше 1", query: readmodel.FindPostsWithLikes{NumberOfLikes: 1}, want: []uuid.UUID{idA}},
		{name: "по существующему id", query: readmodel.FindPostByID{ID: idB}, want: []uuid.UUID{idB}},
		{name: "по отсутствующему id", query: readmodel.FindPostByID{ID: idC}, want: []uuid.UUID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			posts, err := d.Send(ctx, tt.query)
			require.NoError(t, err)
			require.NotNil(t, posts, "пустой результат - пустой срез, а не nil")
			assert.Equal(t, tt.want, postIDs(posts))
		})
	}
}

func TestFindAllPosts_EmptyStore(t *testing.T) {
	t.Parallel()

	posts, err := newDispatcher(t, memory.NewStore()).Send(context.Background(), readmodel.FindAllPosts{})
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

// Сравнение автора точное и чувствительно к регистру.
func TestFindPostsByAuthor_CaseSensitive(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, scenarioStore())
	ctx := context.Background()

	for _, author := range []string{"Alice", "ALICE", "alice ", "ali"} {
		posts, err := d.Send(ctx, readmodel.FindPostsByAuthor{Author: author})
		require.NoError(t, err)
		assert.Empty(t, posts, "автор %q не должен совпадать с alice", author)
	}

	_, err := d.Send(ctx, readmodel.FindPostsByAuthor{})
	require.Error(t, err)
	assert.True(t, query.IsKind(err, query.KindInvalidQuery))
}

// Порог сравнивается как likes >= threshold.
func TestFindPostsWithLikes_Threshold(t *testing.T) {
	t.Parallel()

	below := uuid.New()
	at := uuid.New()
	above := uuid.New()
	d := newDispatcher(t, memory.NewStore(
		readmodel.PostEntity{PostID: below, Author: "x", Likes: 9},
		readmodel.PostEntity{PostID: at, Author: "x", Likes: 10},
		readmodel.PostEntity{PostID: above, Author: "x", Likes: 11},
	))
	ctx := context.Background()

	posts, err := d.Send(ctx, readmodel.FindPostsWithLikes{NumberOfLikes: 10})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{at, above}, postIDs(posts))

	posts, err = d.Send(ctx, readmodel.FindPostsWithLikes{NumberOfLikes: 0})
	require.NoError(t, err)
	assert.Len(t, posts, 3, "нулевой порог включает все посты")

	posts, err = d.Send(ctx, readmodel.FindPostsWithLikes{NumberOfLikes: 12})
	require.NoError(t, err)
	assert.Empty(t, posts)

	_, err = d.Send(ctx, readmodel.FindPostsWithLikes{NumberOfLikes: -1})
	require.Error(t, err)
	assert.True(t, query.IsKind(err, query.KindInvalidQuery))
}

func TestFindPostsWithComments_ExcludesZero(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, memory.NewStore(
		readmodel.PostEntity{PostID: idA, Author: "x", Comments: []readmodel.CommentEntity{}},
		readmodel.PostEntity{PostID: idB, Author: "x", Comments: []readmodel.CommentEntity{{CommentID: uuid.New()}}},
	))

	posts, err := d.Send(context.Background(), readmodel.FindPostsWithComments{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{idB}, postIDs(posts))
}

func TestFindPostByID_NilID(t *testing.T) {
	t.Parallel()

	_, err := newDispatcher(t, scenarioStore()).Send(context.Background(), readmodel.FindPostByID{})
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
}

// Сбой хранилища не подменяется пустым успешным результатом.
func TestHandlers_StorageUnavailable(t *testing.T) {
	t.Parallel()

	store := scenarioStore()
	store.SetUnavailable(errors.New("connection reset by peer"))
	d := newDispatcher(t, store)

	queries := []query.Query{
		readmodel.FindAllPosts{},
		readmodel.FindPostByID{ID: idA},
		readmodel.FindPostsByAuthor{Author: "alice"},
		readmodel.FindPostsWithComments{},
		readmodel.FindPostsWithLikes{NumberOfLikes: 1},
	}

	for _, q := range queries {
		posts, err := d.Send(context.Background(), q)
		require.Error(t, err, "запрос %s", q.Kind())
		assert.Nil(t, posts)
		assert.True(t, query.IsKind(err, query.KindStorageUnavailable), "запрос %s: %v", q.Kind(), err)
		assert.Contains(t, err.Error(), "connection reset by peer", "внутренняя причина сохраняется для логов")
	}
}

// blockingStore ждет отмены контекста на каждом обращении.
type blockingStore struct {
	readmodel.Store
	entered chan struct{}
	once    sync.Once
}

func (s *blockingStore) All(ctx context.Context) ([]readmodel.PostEntity, error) {
	s.once.Do(func() { close(s.entered) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHandlers_CancelledDuringStoreCall(t *testing.T) {
	t.Parallel()

	store := &blockingStore{Store: memory.NewStore(), entered: make(chan struct{})}
	d := newDispatcher(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := d.Send(ctx, readmodel.FindAllPosts{})
		errCh <- err
	}()

	<-store.entered
	cancel()

	err := <-errCh
	require.Error(t, err)
	assert.True(t, query.IsKind(err, query.KindCancelled))
}

// Каждый вызов заново обращается к хранилищу.
func TestHandlers_NoCaching(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	d := newDispatcher(t, store)
	ctx := context.Background()

	posts, err := d.Send(ctx, readmodel.FindAllPosts{})
	require.NoError(t, err)
	assert.Empty(t, posts)

	store.Put(readmodel.PostEntity{PostID: idA, Author: "alice"})

	posts, err = d.Send(ctx, readmodel.FindAllPosts{})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestNewDispatcher_Table(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, memory.NewStore())
	assert.ElementsMatch(t, readmodel.Kinds(), d.Kinds())

	_, err := readmodel.NewDispatcher(nil)
	require.Error(t, err)

	// Повторная регистрация полного набора в тот же реестр отклоняется.
	reg := query.NewRegistry[[]readmodel.PostEntity](readmodel.Kinds()...)
	h := readmodel.NewHandlers(memory.NewStore())
	require.NoError(t, h.Register(reg))
	require.Error(t, h.Register(reg))
}

// Каждый тип запроса отдает свой тег, и теги покрывают объявленный набор.
func TestQueries_Kind(t *testing.T) {
	t.Parallel()

	queries := []query.Query{
		readmodel.FindAllPosts{},
		readmodel.FindPostByID{ID: idA},
		readmodel.FindPostsByAuthor{Author: "alice"},
		readmodel.FindPostsWithComments{},
		readmodel.FindPostsWithLikes{NumberOfLikes: 1},
	}

	got := make([]query.Kind, 0, len(queries))
	for _, q := range queries {
		got = append(got, q.Kind())
	}
	assert.Equal(t, readmodel.Kinds(), got)
}
