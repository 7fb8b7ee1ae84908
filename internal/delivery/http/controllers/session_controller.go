package controllers

import (
	"net/http"

	"eventsync/internal/delivery/http/helpers"
	"eventsync/internal/domain"
)

// SyncStatus reports the state of the synchronization engine.
type SyncStatus interface {
	Active() bool
	ChannelState() domain.ChannelState
}

// SessionResponse describes who the client acts as and whether the view is live.
// swagger:model SessionResponse
type SessionResponse struct {
	Identity domain.Identity `json:"identity"`
	Guest    bool            `json:"guest"`
	Active   bool            `json:"active"`
	Channel  string          `json:"channel"`
}

// SessionSuccessResponse is the success envelope for GET /session.
type SessionSuccessResponse struct {
	Data  SessionResponse   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type SessionController struct {
	Identity domain.Identity
	Status   SyncStatus
}

func NewSessionController(identity domain.Identity, status SyncStatus) *SessionController {
	return &SessionController{Identity: identity, Status: status}
}

// GetSession godoc
// @Summary Current session
// @Description Returns the identity the client acts as, whether the sync scope is active and the push channel state.
// @Tags session
// @Produce json
// @Success 200 {object} controllers.SessionSuccessResponse
// @Router /session [get]
func (c *SessionController) GetSession(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, SessionResponse{
		Identity: c.Identity,
		Guest:    c.Identity.IsGuest(),
		Active:   c.Status.Active(),
		Channel:  c.Status.ChannelState().String(),
	})
}
