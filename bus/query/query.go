// Package query реализует шину запросов на стороне чтения CQRS.
//
// Набор вариантов запросов закрыт: домен объявляет все Kind заранее, а
// таблица диспетчеризации собирается один раз при старте через Registry и
// после этого не меняется. Поиск обработчика - это обычный поиск по тегу,
// без рефлексии и без обработчика по умолчанию.
package query

import (
	"context"

	"github.com/goccy/go-reflect"
)

// Kind - тег варианта запроса. Каждому Kind в таблице соответствует ровно
// один обработчик.
type Kind string

// String реализует fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// Query представляет собой неизменяемое значение, описывающее, что хочет
// узнать вызывающая сторона.
type Query interface {
	// Kind возвращает тег варианта, по которому выбирается обработчик.
	Kind() Kind
}

// Handler определяет функцию-обработчик запроса, возвращающую результат типа R.
type Handler[R any] func(ctx context.Context, q Query) (R, error)

// Handle адаптирует строго типизированную функцию к Handler.
// Если в обработчик попадет значение другого конкретного типа, вернется
// ошибка InvalidQuery.
func Handle[Q Query, R any](fn func(ctx context.Context, q Q) (R, error)) Handler[R] {
	return func(ctx context.Context, q Query) (R, error) {
		typed, ok := q.(Q)
		if !ok {
			var zero R
			var want Q
			return zero, &Error{
				Op:    "query.Handle",
				Kind:  KindInvalidQuery,
				Query: kindOf(q),
				Err:   errMismatchf(want, q),
			}
		}
		return fn(ctx, typed)
	}
}

// isNil сообщает, что запрос отсутствует: nil-интерфейс или nil-указатель
// внутри интерфейса. У такого значения нельзя вызывать Kind.
func isNil(q Query) bool {
	if q == nil {
		return true
	}
	v := reflect.ValueOf(q)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// kindOf безопасно извлекает тег, в том числе из отсутствующего запроса.
func kindOf(q Query) Kind {
	if isNil(q) {
		return ""
	}
	return q.Kind()
}
