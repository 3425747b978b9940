package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophmsg/internal/common"
)

const maxFormMemory = 1 << 20

var errMissingField = errors.New("missing form field")

type errorResponse struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a service failure to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingField):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists), errors.Is(err, common.ErrorConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNoRecipients):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	detail := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		detail = common.ErrorInternal.Error()
	}
	writeJSON(w, code, errorResponse{Status: 0, Detail: detail})
}

// parseForm accepts url-encoded and multipart bodies as well as the query
// string.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

// fields reads the named form values, failing on the first absent one.
func fields(r *http.Request, names ...string) ([]string, error) {
	if err := parseForm(r); err != nil {
		return nil, fmt.Errorf("%w: %v", errMissingField, err)
	}
	values := make([]string, len(names))
	for i, name := range names {
		v, ok := r.Form[name]
		if !ok || len(v) == 0 {
			return nil, fmt.Errorf("%w: %s", errMissingField, name)
		}
		values[i] = v[0]
	}
	return values, nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
