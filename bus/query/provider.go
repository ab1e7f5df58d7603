package query

import (
	"context"
)

// Provider определяет контракт для сменных механизмов диспетчеризации запросов.
type Provider[R any] interface {
	// Send находит обработчик для варианта запроса и выполняет его.
	Send(ctx context.Context, q Query) (R, error)

	// Shutdown корректно завершает работу провайдера.
	Shutdown(ctx context.Context) error
}

// localProvider - внутрипроцессная реализация провайдера запросов.
// Таблица заполняется один раз при создании и дальше только читается,
// поэтому блокировки не нужны.
type localProvider[R any] struct {
	table map[Kind]Handler[R]
}

// newLocalProvider создает локальный провайдер поверх готовой таблицы.
func newLocalProvider[R any](table map[Kind]Handler[R]) *localProvider[R] {
	return &localProvider[R]{table: table}
}

// Send находит и выполняет обработчик для указанного запроса.
func (p *localProvider[R]) Send(ctx context.Context, q Query) (R, error) {
	var zero R

	if isNil(q) {
		return zero, InvalidQuery("query.Send", "", "запрос не может быть nil")
	}

	kind := q.Kind()
	handler, ok := p.table[kind]
	if !ok {
		return zero, &Error{
			Op:    "query.Send",
			Kind:  KindUnregisteredVariant,
			Query: kind,
			Err:   ErrUnregisteredVariant,
		}
	}

	if err := ctx.Err(); err != nil {
		return zero, cancelled("query.Send", kind, err)
	}

	return handler(ctx, q)
}

// Shutdown в данной реализации не выполняет никаких действий.
func (p *localProvider[R]) Shutdown(ctx context.Context) error {
	return nil
}
