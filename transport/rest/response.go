package rest

import (
	"encoding/json"
	"net/http"

	"github.com/x-research-team/post-query/readmodel"
)

// BaseResponse - тело ответа с сообщением для клиента.
type BaseResponse struct {
	Message string `json:"message"`
}

// PostLookupResponse - тело успешного ответа с найденными постами.
type PostLookupResponse struct {
	BaseResponse
	Posts []readmodel.PostEntity `json:"posts"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
