package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/post-query/readmodel"
	"github.com/x-research-team/post-query/readstore/memory"
)

var (
	idA = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idB = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

func comment(postID uuid.UUID) readmodel.CommentEntity {
	return readmodel.CommentEntity{CommentID: uuid.New(), PostID: postID, Username: "u", Comment: "c"}
}

func TestStore_Primitives(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore(
		readmodel.PostEntity{PostID: idA, Author: "alice", Likes: 5},
		readmodel.PostEntity{PostID: idB, Author: "bob", Comments: []readmodel.CommentEntity{comment(idB), comment(idB)}},
	)
	require.Equal(t, 2, store.Len())

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, idA, all[0].PostID, "порядок итерации совпадает с порядком вставки")
	assert.Equal(t, idB, all[1].PostID)

	post, found, err := store.ByID(ctx, idB)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bob", post.Author)

	_, found, err = store.ByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, found)

	byAuthor, err := store.ByAuthor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, idA, byAuthor[0].PostID)

	withComments, err := store.WithComments(ctx)
	require.NoError(t, err)
	require.Len(t, withComments, 1)
	assert.Equal(t, idB, withComments[0].PostID)

	withLikes, err := store.WithLikes(ctx, 5)
	require.NoError(t, err)
	require.Len(t, withLikes, 1)
	assert.Equal(t, idA, withLikes[0].PostID)
}

// Изменение возвращенного поста не затрагивает хранилище.
func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore(readmodel.PostEntity{PostID: idB, Author: "bob", Comments: []readmodel.CommentEntity{comment(idB)}})

	post, _, err := store.ByID(ctx, idB)
	require.NoError(t, err)
	post.Comments[0].Comment = "изменено"
	post.Author = "mallory"

	again, _, err := store.ByID(ctx, idB)
	require.NoError(t, err)
	assert.Equal(t, "bob", again.Author)
	assert.Equal(t, "c", again.Comments[0].Comment)
}

func TestStore_PutReplacesAndReindexes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore(readmodel.PostEntity{PostID: idA, Author: "alice"})
	store.Put(readmodel.PostEntity{PostID: idA, Author: "Alice"})

	assert.Equal(t, 1, store.Len())

	old, err := store.ByAuthor(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, old)

	renamed, err := store.ByAuthor(ctx, "Alice")
	require.NoError(t, err)
	assert.Len(t, renamed, 1)
}

func TestStore_Unavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outage := errors.New("хранилище на обслуживании")
	store := memory.NewStore(readmodel.PostEntity{PostID: idA, Author: "alice"})
	store.SetUnavailable(outage)

	_, err := store.All(ctx)
	assert.ErrorIs(t, err, outage)
	_, _, err = store.ByID(ctx, idA)
	assert.ErrorIs(t, err, outage)

	store.SetUnavailable(nil)
	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_ObservesContext(t *testing.T) {
	t.Parallel()

	store := memory.NewStore(readmodel.PostEntity{PostID: idA, Author: "alice"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.All(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, _, err = store.ByID(ctx, idA)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_ConcurrentReadWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Put(readmodel.PostEntity{PostID: uuid.New(), Author: "w", Likes: 1})
		}()
		go func() {
			defer wg.Done()
			_, err := store.WithLikes(ctx, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestLoadFixtures(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	n, err := store.LoadFixtures(context.Background(), "../fixture/testdata/posts.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	post, found, err := store.ByID(context.Background(), idB)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bob", post.Author)
	require.Len(t, post.Comments, 2)
	assert.Equal(t, idB, post.Comments[1].PostID)
	assert.NotEqual(t, uuid.Nil, post.Comments[1].CommentID)
	assert.True(t, post.Comments[1].Edited)
	assert.Equal(t, time.Date(2024, 3, 3, 8, 30, 0, 0, time.UTC), post.DateModified)

	alice, _, err := store.ByID(context.Background(), idA)
	require.NoError(t, err)
	assert.Equal(t, alice.DatePosted, alice.DateModified, "дата изменения по умолчанию равна дате публикации")
	assert.NotNil(t, alice.Comments)
}

func TestLoadFixtures_Missing(t *testing.T) {
	t.Parallel()

	_, err := memory.NewStore().LoadFixtures(context.Background(), "../fixture/testdata/missing.yaml")
	require.Error(t, err)
}
