package controller

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/bulkmail/internal/handler"
	"github.com/unclebandit/bulkmail/internal/service"
)

// NewRouter wires every HTTP route onto svc. checks back /readyz.
func NewRouter(svc *service.CampaignService, logger *slog.Logger, checks handler.Checks) http.Handler {
	campaigns := &CampaignController{CampaignService: svc}
	settings := handler.NewSettingsHandler(svc)
	contactList := handler.NewContactsHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", handler.Liveness)
	r.Get("/readyz", handler.Readiness(checks))

	r.Get("/settings", settings.GetSettings)
	r.Put("/settings", settings.PutSettings)
	r.Get("/template", settings.GetTemplate)
	r.Put("/template", settings.PutTemplate)
	r.Get("/schedule", settings.GetSchedule)
	r.Put("/schedule", settings.PutSchedule)

	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", contactList.List)
		r.Post("/import", contactList.Import)
		r.Get("/sample", contactList.Sample)
		r.Delete("/{index}", contactList.Remove)
	})
	r.Post("/preview", contactList.Preview)

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", campaigns.CreateCampaign)
		r.Get("/", campaigns.ListCampaigns)
		r.Get("/{id}", campaigns.GetCampaignDetails)
		r.Post("/{id}/send", campaigns.SendCampaign)
		r.Post("/{id}/cancel", campaigns.CancelCampaign)
		r.Get("/{id}/export", campaigns.ExportOutcomes)
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.DebugContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
