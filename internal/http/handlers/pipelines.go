package handlers

import (
	"fmt"
	"net/http"

	"studio/internal/middleware"
	"studio/internal/pipeline"
	"studio/internal/storage"
	"studio/pkg/zip"
)

// pipelineFailure keeps whatever a failed run produced next to the error.
type pipelineFailure struct {
	Error  any `json:"error"`
	Result any `json:"result,omitempty"`
}

func respond[T any](a *App, w http.ResponseWriter, r *http.Request, out *T, err error) {
	if err == nil {
		a.json(w, http.StatusOK, out)
		return
	}
	if out == nil {
		a.error(w, r, err)
		return
	}
	apiErr := statusError(err)
	a.Log.Warn().
		Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Int("status", apiErr.StatusCode).
		Msg("http: pipeline failed")
	a.json(w, apiErr.StatusCode, pipelineFailure{Error: apiErr, Result: out})
}

// requestLanguage fills an omitted language from the caller's preference.
func requestLanguage(r *http.Request, lang string) string {
	if lang != "" {
		return lang
	}
	return middleware.LanguageFromContext(r.Context())
}

func (a *App) Storyboard(w http.ResponseWriter, r *http.Request) {
	var req pipeline.StoryboardRequest
	if !a.decode(w, r, &req) {
		return
	}
	out, err := a.Pipelines.Storyboard(r.Context(), req)
	if err == nil && r.URL.Query().Get("format") == "zip" {
		a.storyboardArchive(w, r, out)
		return
	}
	respond(a, w, r, out, err)
}

// storyboardArchive sends the rendered frames as one zip download. Frames that
// failed are left out.
func (a *App) storyboardArchive(w http.ResponseWriter, r *http.Request, board *pipeline.Storyboard) {
	assets := make([]zip.Asset, 0, len(board.Frames))
	for _, frame := range board.Frames {
		if frame.Image == nil {
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("frame_%02d%s", frame.Index+1, storage.Extension(frame.Image.MIMEType)),
			Data:     frame.Image.Data,
		})
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "storyboard-"+board.Run.ID+".zip"))
	if err := zip.Write(w, assets, board.Run.FinishedAt); err != nil {
		a.Log.Error().Err(err).Str("run", board.Run.ID).Msg("http: storyboard archive failed")
	}
}

func (a *App) StoryboardRemix(w http.ResponseWriter, r *http.Request) {
	var req pipeline.RemixRequest
	if !a.decode(w, r, &req) {
		return
	}
	img, err := a.Pipelines.Remix(r.Context(), req)
	a.image(w, r, img, err)
}

func (a *App) Documentary(w http.ResponseWriter, r *http.Request) {
	var req pipeline.DocumentaryRequest
	if !a.decode(w, r, &req) {
		return
	}
	out, err := a.Pipelines.Documentary(r.Context(), req)
	respond(a, w, r, out, err)
}

func (a *App) Marketing(w http.ResponseWriter, r *http.Request) {
	var req pipeline.MarketingRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.Language = requestLanguage(r, req.Language)
	out, err := a.Pipelines.Marketing(r.Context(), req)
	respond(a, w, r, out, err)
}

func (a *App) Concept(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ConceptRequest
	if !a.decode(w, r, &req) {
		return
	}
	out, err := a.Pipelines.Concept(r.Context(), req)
	respond(a, w, r, out, err)
}

func (a *App) Dubbing(w http.ResponseWriter, r *http.Request) {
	var req pipeline.DubbingRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.Language = requestLanguage(r, req.Language)
	out, err := a.Pipelines.Dubbing(r.Context(), req)
	respond(a, w, r, out, err)
}
