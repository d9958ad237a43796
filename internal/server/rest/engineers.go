package rest

import (
	"net/http"
	"strconv"

	"github.com/ingenieros-gt/evote/internal/server/models"
	"github.com/ingenieros-gt/evote/internal/server/services"
)

// ListEngineers lists the roster, filtered by ?q= and ?activo=.
func (h *Handler) ListEngineers(w http.ResponseWriter, r *http.Request) {
	f := models.EngineerFilter{Query: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("activo"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, badRequest("invalid activo"))
			return
		}
		f.Activo = &b
	}

	list, err := h.roster.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) PatchEngineer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req engineerPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	e, err := h.roster.Update(r.Context(), id, services.EngineerUpdate{
		Nombre:   req.Nombre,
		Email:    req.Email,
		Activo:   req.Activo,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pw, err := h.roster.ResetPassword(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"password": pw})
}
