package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ingenieros-gt/evote/internal/server/services"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	_, err := h.auth.Register(r.Context(), services.RegisterInput{
		Colegiado:       strings.TrimSpace(string(req.Colegiado)),
		Nombre:          req.Nombre,
		Email:           req.Email,
		DPI:             string(req.DPI),
		FechaNacimiento: req.FechaNacimiento,
		Password:        req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.auth.Login(r.Context(), services.LoginInput{
		Colegiado:       strings.TrimSpace(string(req.Colegiado)),
		DPI:             string(req.DPI),
		FechaNacimiento: req.FechaNacimiento,
		Password:        req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	login := req.login()
	if login == "" || req.Password == "" {
		h.writeError(w, r, badRequest("login and password are required"))
		return
	}

	token, err := h.auth.AdminLogin(r.Context(), login, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": PrincipalFrom(r.Context())})
}

func (h *Handler) RosterStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.auth.RosterStatus(r.Context(), chi.URLParam(r, "colegiado"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SyncRoster merges the posted items; a missing activo means inactive.
func (h *Handler) SyncRoster(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	n, err := h.roster.Sync(r.Context(), services.Records(req.Items, false))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}

func (h *Handler) RosterDiagnostics(w http.ResponseWriter, r *http.Request) {
	d, err := h.roster.Diagnostics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
