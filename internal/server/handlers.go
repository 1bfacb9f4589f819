package server

import (
	"errors"
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sternrassler/game2048-metrics/pkg/metrics"
	"github.com/Sternrassler/game2048-metrics/pkg/tracing"
)

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.page.Write(w, http.StatusOK); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write game page")
	}
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Route not found, serving game page")
	if err := h.page.Write(w, http.StatusNotFound); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write game page")
	}
}

func (h *Handler) handleBadRequest(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Method not allowed")
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msgBadRequest})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func handleServiceHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "healthy", Service: ServiceName})
}

// recordEvent returns an ingestion handler that increments counter once per
// call. Nothing about the request is validated.
func (h *Handler) recordEvent(counter, okMsg, failMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.Tracer().Start(r.Context(), "record_event",
			trace.WithAttributes(attribute.String("counter", counter)))
		defer span.End()

		if err := h.registry.Increment(counter); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, failMsg)
			h.logger.Error().
				Err(err).
				Str("counter", counter).
				Str("request_id", chimw.GetReqID(ctx)).
				Msg(failMsg)

			if h.strict && errors.Is(err, metrics.ErrUnknownCounter) {
				panic(err)
			}

			writeJSON(w, http.StatusInternalServerError, statusBody{Status: "error", Message: failMsg})
			return
		}

		h.logger.Debug().Str("counter", counter).Msg(okMsg)
		writeJSON(w, http.StatusOK, statusBody{Status: "success", Message: okMsg})
	}
}
