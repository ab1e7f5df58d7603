package readmodel

import (
	"github.com/google/uuid"

	"github.com/x-research-team/post-query/bus/query"
)

// Варианты запросов к модели чтения постов.
const (
	KindAllPosts          query.Kind = "all_posts"
	KindPostByID          query.Kind = "post_by_id"
	KindPostsByAuthor     query.Kind = "posts_by_author"
	KindPostsWithComments query.Kind = "posts_with_comments"
	KindPostsWithLikes    query.Kind = "posts_with_likes"
)

// Kinds возвращает закрытый набор вариантов запросов.
func Kinds() []query.Kind {
	return []query.Kind{
		KindAllPosts,
		KindPostByID,
		KindPostsByAuthor,
		KindPostsWithComments,
		KindPostsWithLikes,
	}
}

// FindAllPosts - все посты из хранилища.
type FindAllPosts struct{}

// Kind возвращает KindAllPosts.
func (FindAllPosts) Kind() query.Kind { return KindAllPosts }

// FindPostByID - пост с указанным идентификатором.
type FindPostByID struct {
	ID uuid.UUID
}

// Kind возвращает KindPostByID.
func (FindPostByID) Kind() query.Kind { return KindPostByID }

// FindPostsByAuthor - посты автора. Сравнение точное и чувствительно к регистру.
type FindPostsByAuthor struct {
	Author string
}

// Kind возвращает KindPostsByAuthor.
func (FindPostsByAuthor) Kind() query.Kind { return KindPostsByAuthor }

// FindPostsWithComments - посты, у которых есть хотя бы один комментарий.
type FindPostsWithComments struct{}

// Kind возвращает KindPostsWithComments.
func (FindPostsWithComments) Kind() query.Kind { return KindPostsWithComments }

// FindPostsWithLikes - посты, у которых лайков не меньше NumberOfLikes.
type FindPostsWithLikes struct {
	NumberOfLikes int
}

// Kind возвращает KindPostsWithLikes.
func (FindPostsWithLikes) Kind() query.Kind { return KindPostsWithLikes }
