package ticket_api

import (
	"fmt"
	"net/http"

	"ms-ticketshop/internal/utils"
)

// GetTicketCounts → GET /api/tickets/count
func (h *Handler) GetTicketCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Counter.GetTicketCounts(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketCounts: %v", err))
		utils.WriteError(w, err)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, counts); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketCounts: failed to encode response: %v", err))
	}
}
