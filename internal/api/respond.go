package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	apperrors "github.com/yourorg/gigachat-gateway/internal/errors"
	"github.com/yourorg/gigachat-gateway/internal/middleware"
)

const maxRequestBytes = 1 << 20

// params reads named request fields: the query string for GET, a JSON object
// body otherwise. Absent and null fields read as "".
type params struct {
	get func(string) string
}

func readParams(r *http.Request) (params, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		return params{get: q.Get}, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return params{}, fmt.Errorf("%w: reading body: %v", apperrors.ErrValidation, err)
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return params{}, fmt.Errorf("%w: body must be a JSON object", apperrors.ErrValidation)
	}
	doc := gjson.ParseBytes(body)
	return params{get: func(key string) string {
		v := doc.Get(key)
		if v.Type == gjson.Null {
			return ""
		}
		return v.String()
	}}, nil
}

func (p params) String(key string) string { return p.get(key) }

// Optional returns nil for an absent field so it encodes as JSON null.
func (p params) Optional(key string) *string {
	v := p.get(key)
	if v == "" {
		return nil
	}
	return &v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status. Unclassified failures become 500 with
// prefix prepended to the message.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, prefix string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		middleware.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperrors.ErrRateLimited):
		middleware.WriteDetail(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		middleware.WriteDetail(w, http.StatusNotFound, err.Error())
	default:
		log.Error().
			Err(err).
			Str("rid", middleware.RequestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg(prefix)
		middleware.WriteDetail(w, http.StatusInternalServerError, prefix+": "+err.Error())
	}
}
