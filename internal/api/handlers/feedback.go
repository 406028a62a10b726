// feedback.go — обработчики /api/tilbakemeldinger.
package handlers

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/bruker-api/internal/api/errors"
	"github.com/bigkaa/bruker-api/internal/domain/rbac"
	"github.com/bigkaa/bruker-api/internal/service"
)

// Роли операций с обратной связью. Отправить может любая роль,
// просматривать и обрабатывать — только UTVIKLER.
var (
	feedbackSubmitters = rbac.AllRoles()
	feedbackAdmins     = []rbac.Role{rbac.RoleUtvikler}
)

// ListFeedback — GET /api/tilbakemeldinger?side=N.
func (h *APIHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, feedbackAdmins...); !ok {
		return
	}

	// side опционален; нечисловое значение даёт первую страницу.
	var side *string
	if err := runtime.BindQueryParameter("form", true, false, "side", r.URL.Query(), &side); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	page := 1
	if side != nil {
		page = service.ParsePageNumber(*side)
	}

	result, err := h.feedback.ListPage(r.Context(), page)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := feedbackPageResponse{
		Tilbakemeldinger: make([]feedbackResponse, 0, len(result.Items)),
		Side:             result.Page,
		TotalSider:       result.TotalPages,
		TotaltAntall:     result.Total,
	}
	for i := range result.Items {
		resp.Tilbakemeldinger = append(resp.Tilbakemeldinger, mapFeedback(&result.Items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateFeedback — POST /api/tilbakemeldinger.
func (h *APIHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, feedbackSubmitters...); !ok {
		return
	}

	var req feedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.feedback.Create(r.Context(), service.CreateFeedbackInput{
		Name:      req.Navn,
		Body:      req.Tilbakemelding,
		Category:  req.Kategori,
		SourceURL: req.URL,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapFeedback(f))
}

// UpdateFeedback — PUT /api/tilbakemeldinger/{id}.
func (h *APIHandler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, feedbackAdmins...); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var req feedbackUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.feedback.Update(r.Context(), id, service.UpdateFeedbackInput{
		Category:     req.Kategori,
		TrackingLink: req.TrelloLenke,
		Status:       req.Status,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFeedback(f))
}

// DeleteFeedback — DELETE /api/tilbakemeldinger/{id}. Удаление безвозвратное.
func (h *APIHandler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, feedbackAdmins...); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if err := h.feedback.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
