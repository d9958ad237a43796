// Package rest exposes the voting services as a JSON API over HTTP, routed
// with chi. Callers authenticate with bearer session tokens.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/logging"
)

type Handler struct {
	auth      AuthService
	roster    RosterService
	campaigns CampaignService
	votes     VoteService
	logger    logging.Logger
}

func NewHandler(a AuthService, rs RosterService, cs CampaignService, vs VoteService, l logging.Logger) *Handler {
	return &Handler{auth: a, roster: rs, campaigns: cs, votes: vs, logger: l}
}

// Routes builds the router for the /api tree.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, common.NewError(common.ErrorNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method_not_allowed", Message: "method not allowed"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/admin/login", h.AdminLogin)
			r.Get("/engineers/{colegiado}/status", h.RosterStatus)

			r.Group(func(r chi.Router) {
				r.Use(h.authenticate)
				r.Get("/me", h.Me)

				r.Group(func(r chi.Router) {
					r.Use(h.requireRoles(common.RoleAdmin))
					r.Post("/admin/engineers/sync", h.SyncRoster)
					r.Get("/admin/engineers/diagnostics", h.RosterDiagnostics)
				})
			})
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Use(h.authenticate)

			r.Group(func(r chi.Router) {
				r.Use(h.requireRoles(common.RoleVoter, common.RoleAdmin))
				r.Get("/", h.ListCampaigns)
				r.Get("/{id}", h.GetCampaign)
				r.Post("/{id}/vote", h.Vote)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.requireRoles(common.RoleAdmin))
				r.Post("/", h.CreateCampaign)
				r.Patch("/{id}", h.UpdateCampaign)
				r.Delete("/{id}", h.DeleteCampaign)
				r.Get("/options/engineers", h.EngineerOptions)
				r.Get("/options/engineers/search", h.SearchEngineers)
				r.Post("/candidates/{id}/photo", h.PresignPhoto)
			})
		})

		r.Route("/admin/engineers", func(r chi.Router) {
			r.Use(h.authenticate)
			r.Use(h.requireRoles(common.RoleAdmin))
			r.Get("/", h.ListEngineers)
			r.Patch("/{id}", h.PatchEngineer)
			r.Post("/{id}/reset-password", h.ResetPassword)
		})
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
