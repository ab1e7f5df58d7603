// Package readmodel описывает денормализованную модель чтения постов и
// обработчики запросов к ней.
package readmodel

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// PostEntity - денормализованная проекция поста вместе с комментариями и
// количеством лайков. Сущности принадлежат хранилищу; обработчики их только читают.
type PostEntity struct {
	PostID       uuid.UUID       `json:"postId"`
	Author       string          `json:"author"`
	Message      string          `json:"message"`
	DatePosted   time.Time       `json:"datePosted"`
	DateModified time.Time       `json:"dateModified"`
	Likes        int             `json:"likes"`
	Comments     []CommentEntity `json:"comments"`
}

// CommentEntity - комментарий, встроенный в пост.
type CommentEntity struct {
	CommentID   uuid.UUID `json:"commentId"`
	PostID      uuid.UUID `json:"postId"`
	Username    string    `json:"username"`
	Comment     string    `json:"comment"`
	CommentDate time.Time `json:"commentDate"`
	Edited      bool      `json:"edited"`
}

// HasComments сообщает, есть ли у поста хотя бы один комментарий.
func (p PostEntity) HasComments() bool {
	return len(p.Comments) > 0
}

// Clone возвращает копию поста, не разделяющую срез комментариев с оригиналом.
func (p PostEntity) Clone() PostEntity {
	p.Comments = slices.Clone(p.Comments)
	if p.Comments == nil {
		p.Comments = []CommentEntity{}
	}
	return p
}
