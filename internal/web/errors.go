package web

// errors.go provides the JSON error envelope for the API. Technical detail
// is logged server-side with the request id; clients get the message and a
// stable machine-readable code.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stonelake/gemfeed/internal/catalog"
	"github.com/stonelake/gemfeed/internal/logging"
	"github.com/stonelake/gemfeed/internal/store"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs err and writes the mapped JSON envelope.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

// classify maps domain errors to status codes and stable error codes.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound, "job_not_found"
	case errors.Is(err, catalog.ErrRunActive):
		return http.StatusConflict, "run_active"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// errBadRequest marks client input errors raised by handlers.
var errBadRequest = errors.New("bad request")
