package query

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry собирает таблицу диспетчеризации при старте процесса.
// Реестр знает закрытый набор объявленных вариантов и гарантирует, что
// каждому из них соответствует ровно один обработчик. После Build реестр
// запечатывается, и дальнейшая регистрация невозможна.
type Registry[R any] struct {
	declared []Kind
	handlers map[Kind]Handler[R]
	built    bool
	mu       sync.Mutex
}

// NewRegistry создает реестр для закрытого набора вариантов запросов.
func NewRegistry[R any](declared ...Kind) *Registry[R] {
	return &Registry[R]{
		declared: slices.Clone(declared),
		handlers: make(map[Kind]Handler[R], len(declared)),
	}
}

// Register связывает вариант запроса с обработчиком.
// Повторная регистрация того же варианта возвращает ошибку: обработчики
// не перезаписываются и не объединяются.
func (r *Registry[R]) Register(kind Kind, handler Handler[R]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.built {
		return fmt.Errorf("реестр уже собран, регистрация обработчика для запроса '%s' невозможна", kind)
	}
	if handler == nil {
		return fmt.Errorf("обработчик для запроса '%s' не может быть nil", kind)
	}
	if !slices.Contains(r.declared, kind) {
		return fmt.Errorf("запрос '%s' не объявлен в реестре", kind)
	}
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("обработчик для запроса '%s' уже зарегистрирован", kind)
	}

	r.handlers[kind] = handler
	return nil
}

// Build проверяет полноту таблицы и создает неизменяемый диспетчер.
// Если хотя бы для одного объявленного варианта нет обработчика, возвращается
// ошибка вида KindUnregisteredVariant со списком всех пропущенных вариантов.
func (r *Registry[R]) Build(opts ...Option[R]) (IDispatcher[R], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.built {
		return nil, fmt.Errorf("реестр уже собран")
	}

	var missing []string
	for _, kind := range r.declared {
		if _, ok := r.handlers[kind]; !ok {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return nil, &Error{
			Op:   "query.Registry.Build",
			Kind: KindUnregisteredVariant,
			Err:  fmt.Errorf("нет обработчиков для запросов: %s", strings.Join(missing, ", ")),
		}
	}

	table := make(map[Kind]Handler[R], len(r.handlers))
	for kind, handler := range r.handlers {
		table[kind] = handler
	}

	r.built = true

	return newDispatcher(r.declared, table, opts...), nil
}

// MustBuild работает как Build, но паникует при ошибке. Предназначен для
// сборки таблицы при старте, когда некомплектная таблица - дефект конфигурации.
func (r *Registry[R]) MustBuild(opts ...Option[R]) IDispatcher[R] {
	d, err := r.Build(opts...)
	if err != nil {
		panic(err)
	}
	return d
}
