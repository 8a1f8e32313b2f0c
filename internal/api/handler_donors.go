package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hemagenda-backend/internal/donor"
	"hemagenda-backend/internal/model"
)

type suggestResponse struct {
	Query            string        `json:"query"`
	Candidates       []model.Donor `json:"candidates"`
	Selected         *model.Donor  `json:"selected,omitempty"`
	IdentityDocument string        `json:"rg,omitempty"`
}

// SuggestDonors returns the suggestions for a partially typed name. A name
// that matches exactly one donor comes back selected with the RG pre-filled.
func (h *Handler) SuggestDonors(c *gin.Context) {
	donors, err := h.donors.Donors(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}

	m := donor.NewMatcher(donors)
	m.SetQuery(c.Query("q"))

	resp := suggestResponse{
		Query:            m.Query(),
		Candidates:       m.Candidates(),
		IdentityDocument: m.IdentityDocument(),
	}
	if d, ok := m.Selected(); ok {
		resp.Selected = &d
	}
	c.JSON(http.StatusOK, resp)
}

// SearchDonor returns the first donor matching q and their donations.
func (h *Handler) SearchDonor(c *gin.Context) {
	result, err := h.lookup.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, result)
}
