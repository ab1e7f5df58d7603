package memory

import (
	"context"

	"github.com/x-research-team/post-query/readstore/fixture"
)

// LoadFixtures читает YAML-файл с постами и добавляет их в хранилище.
// Возвращает количество загруженных постов.
func (s *Store) LoadFixtures(ctx context.Context, path string) (int, error) {
	posts, err := fixture.Load(path)
	if err != nil {
		return 0, err
	}

	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		s.Put(p)
	}
	return len(posts), nil
}
