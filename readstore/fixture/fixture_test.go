package fixture_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/post-query/readstore/fixture"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	posts, err := fixture.Load("testdata/posts.yaml")
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "alice", posts[0].Author)
	assert.Equal(t, 5, posts[0].Likes)
	assert.Equal(t, posts[0].DatePosted, posts[0].DateModified)
	assert.NotNil(t, posts[0].Comments)

	require.Len(t, posts[1].Comments, 2)
	assert.Equal(t, posts[1].PostID, posts[1].Comments[0].PostID)

	_, err = fixture.Load("testdata/missing.yaml")
	require.Error(t, err)
}

func TestDecode_GeneratesIDs(t *testing.T) {
	t.Parallel()

	posts, err := fixture.Decode(strings.NewReader("posts:\n  - author: a\n    comments:\n      - username: b\n"))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.NotEqual(t, uuid.Nil, posts[0].PostID)
	assert.NotEqual(t, uuid.Nil, posts[0].Comments[0].CommentID)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "испорченный id", yaml: "posts:\n  - post_id: nope\n    author: a\n", want: "post_id"},
		{name: "пустой автор", yaml: "posts:\n  - message: x\n", want: "author"},
		{name: "отрицательные лайки", yaml: "posts:\n  - author: a\n    likes: -1\n", want: "likes"},
		{name: "испорченный comment_id", yaml: "posts:\n  - author: a\n    comments:\n      - comment_id: x\n", want: "comment_id"},
		{name: "не YAML", yaml: "posts: [", want: "YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := fixture.Decode(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	posts, err := fixture.Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, posts)
}
