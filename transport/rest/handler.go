// Package rest отдает модель чтения постов по HTTP.
package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"github.com/x-research-team/post-query/bus/query"
	"github.com/x-research-team/post-query/readmodel"
)

// BasePath - префикс маршрутов поиска постов.
const BasePath = "/api/v1/postLookup"

// Сообщения клиенту фиксированы: внутренние причины ошибок пишутся только в лог.
const (
	msgAllPostsFailed     = "Error while processing request to retrieve all posts!"
	msgPostByIDFailed     = "Error while processing request to retrieve a post by id!"
	msgPostByAuthorFailed = "Error while processing request to retrieve a post by author!"
	msgWithCommentsFailed = "Error while processing request to retrieve posts with comments!"
	msgWithLikesFailed    = "Error while processing request to retrieve posts with likes!"
	msgPostByIDFound      = "Successfully returned post!"
	msgBadRequest         = "Invalid request parameters!"
)

// PostLookup обрабатывает HTTP-запросы поиска постов.
type PostLookup struct {
	dispatcher readmodel.Dispatcher
	logger     *slog.Logger
	timeout    time.Duration
	propagator propagation.TextMapPropagator
}

// HandlerOption настраивает PostLookup.
type HandlerOption func(*PostLookup)

// WithLogger задает логгер для ошибок запросов.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *PostLookup) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithTimeout ограничивает время выполнения одного запроса к шине.
func WithTimeout(timeout time.Duration) HandlerOption {
	return func(h *PostLookup) {
		h.timeout = timeout
	}
}

// WithPropagator включает извлечение контекста трассировки из заголовков
// запроса, чтобы спаны шины продолжали трассу вызывающей стороны.
func WithPropagator(p propagation.TextMapPropagator) HandlerOption {
	return func(h *PostLookup) {
		h.propagator = p
	}
}

// NewPostLookup создает обработчики поверх шины запросов.
func NewPostLookup(dispatcher readmodel.Dispatcher, opts ...HandlerOption) *PostLookup {
	h := &PostLookup{
		dispatcher: dispatcher,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes регистрирует маршруты поиска постов.
func (h *PostLookup) Routes(r chi.Router) {
	r.Get("/", h.GetAllPosts)
	r.Get("/byId/{postId}", h.GetByPostID)
	r.Get("/byAuthor/{author}", h.GetPostsByAuthor)
	r.Get("/withComments", h.GetPostsWithComments)
	r.Get("/withLikes/{numberOfLikes}", h.GetPostsWithLikes)
}

// GetAllPosts - GET /.
func (h *PostLookup) GetAllPosts(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, readmodel.FindAllPosts{}, msgAllPostsFailed, countMessage)
}

// GetByPostID - GET /byId/{postId}.
func (h *PostLookup) GetByPostID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "postId"))
	if err != nil {
		h.badRequest(w, r, "postId", err)
		return
	}
	h.lookup(w, r, readmodel.FindPostByID{ID: id}, msgPostByIDFailed, func(int) string {
		return msgPostByIDFound
	})
}

// GetPostsByAuthor - GET /byAuthor/{author}.
func (h *PostLookup) GetPostsByAuthor(w http.ResponseWriter, r *http.Request) {
	// chi сопоставляет маршрут по RawPath, если он задан, и тогда
	// параметр остается закодированным.
	author := chi.URLParam(r, "author")
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(author)
		if err != nil {
			h.badRequest(w, r, "author", err)
			return
		}
		author = decoded
	}
	h.lookup(w, r, readmodel.FindPostsByAuthor{Author: author}, msgPostByAuthorFailed, countMessage)
}

// GetPostsWithComments - GET /withComments.
func (h *PostLookup) GetPostsWithComments(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, readmodel.FindPostsWithComments{}, msgWithCommentsFailed, countMessage)
}

// GetPostsWithLikes - GET /withLikes/{numberOfLikes}.
func (h *PostLookup) GetPostsWithLikes(w http.ResponseWriter, r *http.Request) {
	likes, err := strconv.Atoi(chi.URLParam(r, "numberOfLikes"))
	if err != nil {
		h.badRequest(w, r, "numberOfLikes", err)
		return
	}
	h.lookup(w, r, readmodel.FindPostsWithLikes{NumberOfLikes: likes}, msgWithLikesFailed, countMessage)
}

func (h *PostLookup) lookup(w http.ResponseWriter, r *http.Request, q query.Query, failure string, success func(int) string) {
	ctx := r.Context()
	if h.propagator != nil {
		ctx = h.propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	// Любая ошибка шины, включая invalid_query, отдается клиенту как 500 с
	// фиксированным сообщением маршрута. 400 возможен только до обращения к шине.
	posts, err := h.dispatcher.Send(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, failure,
			"query.type", q.Kind().String(),
			"error.kind", string(query.KindOf(err)),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, BaseResponse{Message: failure})
		return
	}

	if len(posts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, PostLookupResponse{
		BaseResponse: BaseResponse{Message: success(len(posts))},
		Posts:        posts,
	})
}

func (h *PostLookup) badRequest(w http.ResponseWriter, r *http.Request, param string, err error) {
	h.logger.WarnContext(r.Context(), "некорректный параметр пути",
		"param", param,
		"error", err,
	)
	writeJSON(w, http.StatusBadRequest, BaseResponse{Message: msgBadRequest})
}

func countMessage(n int) string {
	suffix := ""
	if n > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("Successfully returned %d post%s!", n, suffix)
}
