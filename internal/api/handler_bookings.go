package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"hemagenda-backend/internal/booking"
)

// PostBooking validates the donor and books the donation.
func (h *Handler) PostBooking(c *gin.Context) {
	var req booking.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conf, err := h.booking.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, msgBookingFailed)
		return
	}

	// The card is served from the view cache even if the confirmation
	// could not be stored locally.
	if _, err := h.cacheView(c.Request.Context(), conf); err != nil {
		log.Warn().Err(err).Str("confirmation_id", conf.ID).Msg("failed to prepare confirmation card")
	}

	c.Header("Location", "/api/confirmations/"+conf.ID)
	c.JSON(http.StatusCreated, conf)
}
