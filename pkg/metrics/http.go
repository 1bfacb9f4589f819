package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/Sternrassler/game2048-metrics/pkg/tracing"
)

// ContentType is the Prometheus text exposition format, version 0.0.4.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Handler serves the registry in the text exposition format.
// On failure it logs the cause and answers 500 with a JSON error body.
func Handler(reg *Registry, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, span := tracing.Tracer().Start(r.Context(), "metrics.exposition")
		defer span.End()

		body, err := reg.Exposition()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "exposition failed")
			logger.Error().Err(err).Msg("Failed to generate metrics")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to generate metrics"})
			return
		}

		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			logger.Warn().Err(err).Msg("Failed to write metrics response")
			return
		}
		logger.Debug().Int("bytes", len(body)).Msg("Served metrics")
	})
}
