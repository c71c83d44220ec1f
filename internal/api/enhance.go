package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/yourorg/gigachat-gateway/internal/service"
)

type EnhancedTextResponse struct {
	OriginalText string `json:"original_text"`
	EnhancedText string `json:"enhanced_text"`
}

// EnhanceText serves /api/enhance: only text is read.
func EnhanceText(e Enhancer, log zerolog.Logger) http.HandlerFunc {
	return enhanceHandler(e, log, false)
}

// EnhanceAdvanced serves /api/enhance/advanced with optional style and length.
func EnhanceAdvanced(e Enhancer, log zerolog.Logger) http.HandlerFunc {
	return enhanceHandler(e, log, true)
}

func enhanceHandler(e Enhancer, log zerolog.Logger, advanced bool) http.HandlerFunc {
	const prefix = "Ошибка обработки текста"
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readParams(r)
		if err != nil {
			writeError(w, r, log, prefix, err)
			return
		}
		in := service.EnhanceInput{
			Text:   p.String("text"),
			UserID: p.String("user_id"),
		}
		if advanced {
			in.Style = p.String("style")
			in.Length = p.String("length")
		}
		out, err := e.Enhance(r.Context(), in)
		if err != nil {
			writeError(w, r, log, prefix, err)
			return
		}
		writeJSON(w, http.StatusOK, EnhancedTextResponse{OriginalText: in.Text, EnhancedText: out})
	}
}

func EnhanceCompany(e Enhancer, log zerolog.Logger) http.HandlerFunc {
	const prefix = "Ошибка обработки описания компании"
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readParams(r)
		if err != nil {
			writeError(w, r, log, prefix, err)
			return
		}
		in := service.CompanyInput{
			Text:           p.String("text"),
			Industry:       p.String("industry"),
			TargetAudience: p.String("target_audience"),
			UniqueFeatures: p.String("unique_features"),
			UserID:         p.String("user_id"),
		}
		out, err := e.EnhanceCompany(r.Context(), in)
		if err != nil {
			writeError(w, r, log, prefix, err)
			return
		}
		writeJSON(w, http.StatusOK, EnhancedTextResponse{OriginalText: in.Text, EnhancedText: out})
	}
}
