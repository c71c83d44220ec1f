package api

import (
	"context"
	"net/http"
	"time"

	"github.com/yourorg/gigachat-gateway/internal/auth"
)

const (
	serviceName        = "Сервис улучшения текста и ассистент платформы"
	serviceDescription = "API для преобразования обычного текста в красочное, грамотное и продающее описание, а также ассистент для помощи пользователям платформы"
	Version            = "1.0.0"
)

// Journal health values.
const (
	JournalDisabled    = "disabled"
	JournalOK          = "ok"
	JournalUnavailable = "unavailable"
)

type RootResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type HealthResponse struct {
	State string `json:"status"`
	auth.Status
	Journal string `json:"journal"`
}

func Root() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, RootResponse{
			Name:        serviceName,
			Version:     Version,
			Description: serviceDescription,
		})
	}
}

// Health always answers 200 while the process serves traffic; token and
// journal state are reported, not enforced.
func Health(tokens TokenStatus, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			State:   "ok",
			Status:  tokens.Status(),
			Journal: JournalDisabled,
		}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			resp.Journal = JournalOK
			if err := db.Ping(ctx); err != nil {
				resp.Journal = JournalUnavailable
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
