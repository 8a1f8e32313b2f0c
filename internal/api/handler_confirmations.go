package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"hemagenda-backend/internal/confirmation"
	"hemagenda-backend/internal/model"
)

type confirmationResponse struct {
	ID       string                `json:"id"`
	Card     *confirmation.Card    `json:"card"`
	DateLine string                `json:"date_line"`
	Actions  []confirmation.Action `json:"actions"`
	ShareURL string                `json:"share_url"`
}

// view returns the displayed card for a confirmation. Views are kept for a
// while so concurrent exports of the same card exclude each other.
func (h *Handler) view(c *gin.Context) (string, *confirmation.View, bool) {
	id := c.Param("id")
	if v, found := h.views.Get(id); found {
		return id, v.(*confirmation.View), true
	}

	conf, err := h.store.GetConfirmation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "")
		return id, nil, false
	}
	v, err := h.cacheView(c.Request.Context(), conf)
	if err != nil {
		respondError(c, err, "")
		return id, nil, false
	}
	return id, v, true
}

// cacheView resolves the card for conf and keeps its view under conf.ID. An
// existing view wins so exports in flight keep their lock.
func (h *Handler) cacheView(ctx context.Context, conf *model.Confirmation) (*confirmation.View, error) {
	card, err := h.cards.Resolve(ctx, confirmation.RequestFor(conf))
	if err != nil {
		return nil, err
	}
	v := confirmation.NewView(card, h.shareBase)
	if err := h.views.Add(conf.ID, v, cache.DefaultExpiration); err != nil {
		if existing, found := h.views.Get(conf.ID); found {
			v = existing.(*confirmation.View)
		}
	}
	return v, nil
}

// GetConfirmation returns the card and its available actions.
func (h *Handler) GetConfirmation(c *gin.Context) {
	id, v, ok := h.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, confirmationResponse{
		ID:       id,
		Card:     v.Card(),
		DateLine: v.Card().DateLine(),
		Actions:  v.Actions(),
		ShareURL: v.ShareURL(),
	})
}

// GetConfirmationPDF downloads the card as a PDF.
func (h *Handler) GetConfirmationPDF(c *gin.Context) {
	_, v, ok := h.view(c)
	if !ok {
		return
	}
	data, err := v.ExportPDF()
	if err != nil {
		respondError(c, err, "")
		return
	}
	attachment(c, "donation_confirmation.pdf")
	c.Data(http.StatusOK, "application/pdf", data)
}

// GetConfirmationJPEG downloads the card as a JPEG image.
func (h *Handler) GetConfirmationJPEG(c *gin.Context) {
	_, v, ok := h.view(c)
	if !ok {
		return
	}
	data, err := v.ExportJPEG()
	if err != nil {
		respondError(c, err, "")
		return
	}
	attachment(c, "donation_confirmation.jpeg")
	c.Data(http.StatusOK, "image/jpeg", data)
}

// GetConfirmationShare redirects to the messaging share link.
func (h *Handler) GetConfirmationShare(c *gin.Context) {
	_, v, ok := h.view(c)
	if !ok {
		return
	}
	if c.Query("redirect") == "false" {
		c.JSON(http.StatusOK, gin.H{"url": v.ShareURL()})
		return
	}
	c.Redirect(http.StatusFound, v.ShareURL())
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
