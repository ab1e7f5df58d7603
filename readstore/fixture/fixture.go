// Package fixture читает YAML-файлы с постами для заполнения хранилищ при
// разработке и в тестах. Это не проекция событий.
package fixture

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/x-research-team/post-query/readmodel"
)

type yamlFixtures struct {
	Posts []yamlPost `yaml:"posts"`
}

type yamlPost struct {
	PostID       string        `yaml:"post_id"`
	Author       string        `yaml:"author"`
	Message      string        `yaml:"message"`
	DatePosted   time.Time     `yaml:"date_posted"`
	DateModified time.Time     `yaml:"date_modified"`
	Likes        int           `yaml:"likes"`
	Comments     []yamlComment `yaml:"comments"`
}

type yamlComment struct {
	CommentID   string    `yaml:"comment_id"`
	Username    string    `yaml:"username"`
	Comment     string    `yaml:"comment"`
	CommentDate time.Time `yaml:"comment_date"`
	Edited      bool      `yaml:"edited"`
}

// Load читает YAML-файл с постами.
func Load(path string) ([]readmodel.PostEntity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл фикстур %s: %w", path, err)
	}
	defer f.Close()

	posts, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("файл фикстур %s: %w", path, err)
	}
	return posts, nil
}

// Decode разбирает YAML с постами. Пустые идентификаторы
// генерируются, дата изменения по умолчанию равна дате публикации.
func Decode(r io.Reader) ([]readmodel.PostEntity, error) {
	var dto yamlFixtures
	if err := yaml.NewDecoder(r).Decode(&dto); err != nil && err != io.EOF {
		return nil, fmt.Errorf("не удалось разобрать YAML: %w", err)
	}

	posts := make([]readmodel.PostEntity, 0, len(dto.Posts))
	for i, p := range dto.Posts {
		post, err := mapPost(p)
		if err != nil {
			return nil, fmt.Errorf("пост #%d: %w", i, err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func mapPost(p yamlPost) (readmodel.PostEntity, error) {
	id, err := parseOrNew(p.PostID)
	if err != nil {
		return readmodel.PostEntity{}, fmt.Errorf("post_id: %w", err)
	}
	if p.Author == "" {
		return readmodel.PostEntity{}, fmt.Errorf("author не может быть пустым")
	}
	if p.Likes < 0 {
		return readmodel.PostEntity{}, fmt.Errorf("likes не может быть отрицательным: %d", p.Likes)
	}

	modified := p.DateModified
	if modified.IsZero() {
		modified = p.DatePosted
	}

	comments := make([]readmodel.CommentEntity, 0, len(p.Comments))
	for j, c := range p.Comments {
		cid, err := parseOrNew(c.CommentID)
		if err != nil {
			return readmodel.PostEntity{}, fmt.Errorf("комментарий #%d: comment_id: %w", j, err)
		}
		comments = append(comments, readmodel.CommentEntity{
			CommentID:   cid,
			PostID:      id,
			Username:    c.Username,
			Comment:     c.Comment,
			CommentDate: c.CommentDate.UTC(),
			Edited:      c.Edited,
		})
	}

	return readmodel.PostEntity{
		PostID:       id,
		Author:       p.Author,
		Message:      p.Message,
		DatePosted:   p.DatePosted.UTC(),
		DateModified: modified.UTC(),
		Likes:        p.Likes,
		Comments:     comments,
	}, nil
}

func parseOrNew(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}
