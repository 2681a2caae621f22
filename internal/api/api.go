// Package api exposes the HTTP surface: the platform webhook endpoint and a
// small read-only ledger API.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"warikanbot/internal/commands"
	"warikanbot/internal/config"
	"warikanbot/internal/split"
)

// Store is the read access the ledger endpoints need. *db.DB satisfies it.
type Store interface {
	TotalsByName(ctx context.Context, sourceID string) ([]split.ParticipantTotal, error)
}

// Replier sends reply messages back to the platform. *line.Client satisfies it.
type Replier interface {
	ReplyMessage(ctx context.Context, replyToken string, messages ...map[string]any) error
}

type API struct {
	router  *mux.Router
	config  *config.Config
	store   Store
	handler *commands.Handler
	replier Replier
	log     *zap.SugaredLogger
}

func New(cfg *config.Config, store Store, handler *commands.Handler, replier Replier, log *zap.SugaredLogger) *API {
	api := &API{
		router:  mux.NewRouter(),
		config:  cfg,
		store:   store,
		handler: handler,
		replier: replier,
		log:     log,
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Platform webhook
	a.router.HandleFunc("/callback", a.handleCallback).Methods("POST")

	// Read-only ledger endpoints
	a.router.HandleFunc("/api/scopes/{scope_id}/totals", a.handleScopeTotals).Methods("GET")
	a.router.HandleFunc("/api/scopes/{scope_id}/settlement", a.handleScopeSettlement).Methods("GET")

	a.router.HandleFunc("/healthz", a.handleHealthz).Methods("GET")
}

func (a *API) Start() error {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	a.log.Infof("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}
