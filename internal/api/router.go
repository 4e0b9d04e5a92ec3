// Package api exposes the filtering, application and record services over
// HTTP and websockets.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/api/handler"
	mw "github.com/spigell/vettavista/internal/api/middleware"
	"github.com/spigell/vettavista/internal/api/response"
)

// Dependencies holds the services behind the routes. Routes whose service is
// nil are not registered.
type Dependencies struct {
	Logger *zap.Logger

	Preliminary  handler.PreliminaryFilter
	Detailed     handler.DetailedFilter
	Applications handler.Applications
	Blacklist    handler.Blacklist
	History      handler.History
	Sync         interface {
		handler.Broadcaster
		handler.SocketServer
	}
	Editor handler.SocketServer
}

// NewRouter builds the chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logger(log))
	r.Use(mw.Recovery(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if deps.Preliminary != nil {
			r.Post("/preliminary-filter", handler.NewPreliminaryFilterHandler(deps.Preliminary, log))
		}
		if deps.Detailed != nil {
			r.Post("/detailed-filter", handler.NewDetailedFilterHandler(deps.Detailed, log))
		}

		if apps := deps.Applications; apps != nil {
			r.Post("/apply/cover-letter/{sessionID}", handler.NewCoverLetterHandler(apps))
			r.Post("/apply/{jobID}", handler.NewApplyHandler(apps))
			r.Post("/editor/back-to-resume/{sessionID}", handler.NewBackToResumeHandler(apps))
			r.Post("/editor/finalize", handler.NewFinalizeHandler(apps))
		}

		if deps.Blacklist != nil && deps.Sync != nil {
			r.Get("/blacklist", handler.NewListBlacklistHandler(deps.Blacklist))
			r.Post("/blacklist", handler.NewAddBlacklistHandler(deps.Blacklist, deps.Sync, log))
			r.Delete("/blacklist/{company}", handler.NewRemoveBlacklistHandler(deps.Blacklist, deps.Sync, log))
		}
		if deps.History != nil && deps.Sync != nil {
			r.Get("/job-history", handler.NewSearchHistoryHandler(deps.History))
			r.Post("/job-history", handler.NewUpsertHistoryHandler(deps.History, deps.Sync, log))
		}
	})

	if deps.Editor != nil {
		r.Get("/ws/editor/{sessionID}", handler.NewWebsocketHandler(deps.Editor, "sessionID", log))
	}
	if deps.Sync != nil {
		r.Get("/ws/sync/{clientID}", handler.NewWebsocketHandler(deps.Sync, "clientID", log))
	}

	return r
}
