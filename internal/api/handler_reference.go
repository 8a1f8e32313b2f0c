package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStates lists all states.
func (h *Handler) GetStates(c *gin.Context) {
	states, err := h.reference.States(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, states)
}

// GetCities lists the cities of one state.
func (h *Handler) GetCities(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	cities, err := h.reference.CitiesByState(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, cities)
}

// GetAddress fills street, city and state from a CEP.
func (h *Handler) GetAddress(c *gin.Context) {
	fill, err := h.address.Resolve(c.Request.Context(), c.Param("cep"))
	if err != nil {
		respondError(c, err, msgCEPNotFound)
		return
	}
	c.JSON(http.StatusOK, fill)
}
