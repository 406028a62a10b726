// news.go — обработчики /api/nyheter.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/bruker-api/internal/api/errors"
	"github.com/bigkaa/bruker-api/internal/domain/rbac"
	"github.com/bigkaa/bruker-api/internal/service"
)

// Роли операций с новостями. UTVIKLER допускается всегда.
var (
	newsReaders = []rbac.Role{rbac.RoleArbeidsgiverrettet, rbac.RoleUtvikler, rbac.RoleJobbsokerrettet}
	newsWriters = []rbac.Role{rbac.RoleUtvikler}
)

// ListNews — GET /api/nyheter. Активные новости, новые первыми.
func (h *APIHandler) ListNews(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, newsReaders...); !ok {
		return
	}

	items, err := h.news.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make([]newsResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, mapNews(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetNews — GET /api/nyheter/{id}. Возвращает и удалённые новости.
func (h *APIHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, newsReaders...); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	n, err := h.news.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapNews(n))
}

// CreateNews — POST /api/nyheter. С nyhetId в теле работает как upsert.
func (h *APIHandler) CreateNews(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, newsWriters...)
	if !ok {
		return
	}

	var req newsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.SaveNewsInput{Title: req.Tittel, Body: req.Innhold}
	if req.NyhetID != nil {
		in.ID = *req.NyhetID
	}

	n, err := h.news.Save(r.Context(), in, principal.Identifier())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapNews(n))
}

// UpdateNews — PUT /api/nyheter/{id}. ID берётся из пути, nyhetId тела игнорируется.
func (h *APIHandler) UpdateNews(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, newsWriters...)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var req newsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.news.Save(r.Context(), service.SaveNewsInput{
		ID:    id,
		Title: req.Tittel,
		Body:  req.Innhold,
	}, principal.Identifier())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapNews(n))
}

// DeleteNews — PUT /api/nyheter/slett/{id}. Мягкое удаление.
func (h *APIHandler) DeleteNews(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, newsWriters...)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	n, err := h.news.Delete(r.Context(), id, principal.Identifier())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapNews(n))
}
