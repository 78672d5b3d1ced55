// Package handlers exposes the session core to the local front-end.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"studio/internal/apierr"
	"studio/internal/gateway"
	"studio/internal/infra/credentials"
	"studio/internal/metrics"
	"studio/internal/middleware"
	"studio/internal/pipeline"
	"studio/internal/storage"
	"studio/internal/videojob"
)

// maxBody bounds request bodies; media travels inline as base64.
const maxBody = 64 << 20

// ClientCache drops remote clients bound to a credential that changed.
type ClientCache interface {
	Forget()
}

type App struct {
	Credentials *credentials.Resolver
	Clients     ClientCache
	Gateway     *gateway.Gateway
	Videos      *videojob.Manager
	Pipelines   *pipeline.Composer
	Media       *storage.MediaStore
	Metrics     *metrics.Collector
	Log         zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error *apierr.Error `json:"error"`
}

func (a *App) error(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := statusError(err)
	event := a.Log.Debug()
	if apiErr.StatusCode >= http.StatusInternalServerError {
		event = a.Log.Warn()
	}
	event.
		Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Int("status", apiErr.StatusCode).
		Str("kind", string(apiErr.Kind)).
		Msg("http: request failed")
	a.json(w, apiErr.StatusCode, errorResponse{Error: apiErr})
}

// statusError maps local sentinel errors onto bridge statuses; everything else
// goes through the normalizer.
func statusError(err error) *apierr.Error {
	switch {
	case errors.Is(err, videojob.ErrNotFound):
		return apierr.New(http.StatusNotFound, "video job not found")
	case errors.Is(err, videojob.ErrNotFinished):
		return apierr.New(http.StatusConflict, "video job is still running")
	case errors.Is(err, videojob.ErrNotExtendable):
		return apierr.New(http.StatusConflict, "video job has no finished video to extend")
	case errors.Is(err, credentials.ErrNoHost):
		return apierr.New(http.StatusConflict, "no host key selection available")
	}
	return apierr.Normalize(err)
}

// decode reads a JSON body into v and writes a 400 when it cannot.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		a.error(w, r, apierr.Invalid(fmt.Errorf("invalid payload: %w", err)))
		return false
	}
	return true
}
