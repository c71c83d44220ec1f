package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	apperrors "github.com/yourorg/gigachat-gateway/internal/errors"
	"github.com/yourorg/gigachat-gateway/internal/service"
	"github.com/yourorg/gigachat-gateway/internal/store"
)

type AssistantResponse struct {
	Answer    string  `json:"answer"`
	UserQuery string  `json:"user_query"`
	Context   *string `json:"context"`
}

type HistoryResponse struct {
	UserID string              `json:"user_id"`
	Items  []store.Interaction `json:"items"`
}

const defaultHistoryLimit = 20

func Ask(a Assistant, log zerolog.Logger) http.HandlerFunc {
	const prefix = "Ошибка обработки запроса к ассистенту"
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readParams(r)
		if err != nil {
			writeError(w, r, log, prefix, err)
			return
		}
		in := service.AskInput{
			Query:   p.String("query"),
			Context: p.String("context"),
			UserID:  p.String("user_id"),
		}
		answer, err := a.Ask(r.Context(), in)
		if err != nil {
			writeError(w, r, log, prefix, err)
			return
		}
		writeJSON(w, http.StatusOK, AssistantResponse{
			Answer:    answer,
			UserQuery: in.Query,
			Context:   p.Optional("context"),
		})
	}
}

func Search(a Assistant, log zerolog.Logger) http.HandlerFunc {
	const prefix = "Ошибка поиска информации"
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readParams(r)
		if err != nil {
			writeError(w, r, log, prefix, err)
			return
		}
		res, err := a.Search(r.Context(), p.String("query"))
		if err != nil {
			writeError(w, r, log, prefix, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func History(a Assistant, log zerolog.Logger) http.HandlerFunc {
	const prefix = "Ошибка получения истории"
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := defaultHistoryLimit
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, r, log, prefix, fmt.Errorf("%w: limit must be a positive integer", apperrors.ErrValidation))
				return
			}
			limit = n
		}
		userID := q.Get("user_id")
		items, err := a.History(r.Context(), userID, limit)
		if err != nil {
			writeError(w, r, log, prefix, err)
			return
		}
		writeJSON(w, http.StatusOK, HistoryResponse{UserID: userID, Items: items})
	}
}
