package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hemagenda-backend/internal/location"
)

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidIdentifier})
		return 0, false
	}
	return id, true
}

// GetLocations returns one page of the maintenance view.
func (h *Handler) GetLocations(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}

	listing, err := h.locations.Browse(c.Request.Context(), location.Query{
		Search: c.Query("q"),
		Sort:   location.ParseSortKey(c.Query("sort")),
		Page:   page,
	})
	if err != nil {
		respondError(c, err, msgFetchFailed)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// UpdateLocation edits a donation location.
func (h *Handler) UpdateLocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var form location.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.locations.Update(c.Request.Context(), id, form); err != nil {
		respondError(c, err, msgUpdateFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Donation location updated successfully!"})
}

// DeleteLocation removes a donation location. A location still referenced by
// donations answers 409.
func (h *Handler) DeleteLocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.locations.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, msgDeleteFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Donation location deleted successfully!"})
}
