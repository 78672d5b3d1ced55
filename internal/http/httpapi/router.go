package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
	"studio/internal/storage"
)

// Options configures the bridge surface around the handlers.
type Options struct {
	AllowedOrigins  []string
	DefaultLanguage string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.LoopbackOnly,
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(app.Log, app.Metrics),
		middleware.CORS(opts.AllowedOrigins),
		middleware.Language(opts.DefaultLanguage),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/credential", func(r chi.Router) {
		r.Get("/", app.CredentialStatus)
		r.Put("/", app.CredentialUpdate)
		r.Delete("/", app.CredentialForget)
		r.Post("/select", app.CredentialSelect)
	})

	r.Post("/v1/chat", app.Chat)
	r.Route("/v1/images", func(r chi.Router) {
		r.Post("/generate", app.ImageGenerate)
		r.Post("/edit", app.ImageEdit)
		r.Post("/upscale", app.ImageUpscale)
		r.Post("/colorize", app.ImageColorize)
	})
	r.Post("/v1/speech", app.Speech)
	r.Post("/v1/speech/conversation", app.Conversation)
	r.Post("/v1/media/analyze", app.MediaAnalyze)
	r.Post("/v1/media/search", app.MediaSearch)
	r.Post("/v1/vision/code", app.VisionCode)
	r.Post("/v1/script", app.Script)

	r.Route("/v1/videos", func(r chi.Router) {
		r.Post("/", app.VideosGenerate)
		r.Get("/", app.VideoList)
		r.Get("/{id}", app.VideoStatus)
		r.Delete("/{id}", app.VideoConsume)
		r.Post("/{id}/extend", app.VideoExtend)
	})

	r.Route("/v1/pipelines", func(r chi.Router) {
		r.Post("/storyboard", app.Storyboard)
		r.Post("/storyboard/remix", app.StoryboardRemix)
		r.Post("/documentary", app.Documentary)
		r.Post("/marketing", app.Marketing)
		r.Post("/concept", app.Concept)
		r.Post("/dubbing", app.Dubbing)
	})

	if app.Media != nil {
		prefix := strings.TrimSuffix(storage.URLPrefix, "/")
		r.Handle(storage.URLPrefix+"*", http.StripPrefix(prefix, app.Media.Handler()))
	}
	if app.Metrics != nil {
		r.Handle("/metrics", app.Metrics.Handler())
	}

	return r
}
