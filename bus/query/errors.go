package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-reflect"
)

// ErrorKind - грубая классификация ошибок шины запросов. Транспортный слой
// видит только вид ошибки, полный текст остается для логов.
type ErrorKind string

const (
	// KindInvalidQuery - в запросе отсутствует или испорчен обязательный параметр.
	KindInvalidQuery ErrorKind = "invalid_query"
	// KindStorageUnavailable - хранилище модели чтения недоступно или вернуло ошибку.
	KindStorageUnavailable ErrorKind = "storage_unavailable"
	// KindUnregisteredVariant - для варианта запроса нет обработчика.
	KindUnregisteredVariant ErrorKind = "unregistered_variant"
	// KindCancelled - запрос прерван отменой контекста или истечением дедлайна.
	KindCancelled ErrorKind = "cancelled"
)

// Сигнальные ошибки для проверки через errors.Is.
var (
	ErrInvalidQuery        = errors.New("некорректный запрос")
	ErrStorageUnavailable  = errors.New("хранилище недоступно")
	ErrUnregisteredVariant = errors.New("обработчик для варианта запроса не зарегистрирован")
	ErrCancelled           = errors.New("запрос отменен")
)

var sentinels = map[ErrorKind]error{
	KindInvalidQuery:        ErrInvalidQuery,
	KindStorageUnavailable:  ErrStorageUnavailable,
	KindUnregisteredVariant: ErrUnregisteredVariant,
	KindCancelled:           ErrCancelled,
}

// Error оборачивает исходную ошибку, добавляя операцию, вид ошибки и тег запроса.
type Error struct {
	Op    string
	Kind  ErrorKind
	Query Kind
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Query != "" {
		base += fmt.Sprintf(" (query=%s)", e.Query)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is сопоставляет ошибку с сигнальной ошибкой ее вида.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return sentinels[e.Kind] == target
}

// KindOf возвращает вид ошибки или пустую строку, если ошибка не классифицирована.
func KindOf(err error) ErrorKind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}

// IsKind проверяет вид ошибки без зависимости от конкретного хранилища.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// InvalidQuery создает ошибку вида KindInvalidQuery.
func InvalidQuery(op string, q Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: KindInvalidQuery, Query: q, Err: fmt.Errorf(format, args...)}
}

// StorageError классифицирует ошибку хранилища. Отмена контекста и истечение
// дедлайна становятся KindCancelled, остальное - KindStorageUnavailable.
// Уже классифицированные ошибки возвращаются без изменений.
func StorageError(op string, q Kind, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: op, Kind: KindCancelled, Query: q, Err: err}
	}
	return &Error{Op: op, Kind: KindStorageUnavailable, Query: q, Err: err}
}

// cancelled оборачивает ошибку контекста.
func cancelled(op string, q Kind, err error) error {
	return &Error{Op: op, Kind: KindCancelled, Query: q, Err: err}
}

// errMismatchf описывает несовпадение типа запроса и обработчика.
func errMismatchf(want, got any) error {
	return fmt.Errorf("обработчик ожидает '%s', получен '%s'", typeName(want), typeName(got))
}

// typeName возвращает имя типа значения.
func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
