// dto.go — JSON-представления новостей и обратной связи.
package handlers

import (
	"time"

	"github.com/bigkaa/bruker-api/internal/domain/model"
)

// newsRequest — тело POST /api/nyheter и PUT /api/nyheter/{id}.
type newsRequest struct {
	NyhetID *string `json:"nyhetId"`
	Tittel  string  `json:"tittel"`
	Innhold string  `json:"innhold"`
}

// newsResponse — новость в ответе API.
type newsResponse struct {
	NyhetID        string    `json:"nyhetId"`
	Tittel         string    `json:"tittel"`
	Innhold        string    `json:"innhold"`
	OpprettetDato  time.Time `json:"opprettetDato"`
	OpprettetAv    string    `json:"opprettetAv"`
	SistEndretDato time.Time `json:"sistEndretDato"`
	SistEndretAv   string    `json:"sistEndretAv"`
	Status         string    `json:"status"`
}

func mapNews(n *model.News) newsResponse {
	return newsResponse{
		NyhetID:        n.ID,
		Tittel:         n.Title,
		Innhold:        n.Body,
		OpprettetDato:  n.CreatedAt,
		OpprettetAv:    n.CreatedBy,
		SistEndretDato: n.LastModifiedAt,
		SistEndretAv:   n.LastModifiedBy,
		Status:         string(n.Status),
	}
}

// feedbackRequest — тело POST /api/tilbakemeldinger.
type feedbackRequest struct {
	Navn           *string `json:"navn"`
	Tilbakemelding string  `json:"tilbakemelding"`
	Kategori       string  `json:"kategori"`
	URL            *string `json:"url"`
}

// feedbackUpdateRequest — тело PUT /api/tilbakemeldinger/{id}.
type feedbackUpdateRequest struct {
	Kategori    string  `json:"kategori"`
	TrelloLenke *string `json:"trelloLenke"`
	Status      string  `json:"status"`
}

// feedbackResponse — запись обратной связи в ответе API.
// Отсутствующие опциональные поля сериализуются как null.
type feedbackResponse struct {
	ID             string    `json:"id"`
	Navn           *string   `json:"navn"`
	Tilbakemelding string    `json:"tilbakemelding"`
	Dato           time.Time `json:"dato"`
	Status         string    `json:"status"`
	TrelloLenke    *string   `json:"trelloLenke"`
	Kategori       string    `json:"kategori"`
	URL            *string   `json:"url"`
}

func mapFeedback(f *model.Feedback) feedbackResponse {
	return feedbackResponse{
		ID:             f.ID,
		Navn:           f.Name,
		Tilbakemelding: f.Body,
		Dato:           f.SubmittedAt,
		Status:         string(f.Status),
		TrelloLenke:    f.TrackingLink,
		Kategori:       string(f.Category),
		URL:            f.SourceURL,
	}
}

// feedbackPageResponse — страница обратной связи.
type feedbackPageResponse struct {
	Tilbakemeldinger []feedbackResponse `json:"tilbakemeldinger"`
	Side             int                `json:"side"`
	TotalSider       int                `json:"totalSider"`
	TotaltAntall     int                `json:"totaltAntall"`
}
