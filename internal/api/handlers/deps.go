package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/adwaith-rk/threadly/internal/api/middleware"
	"github.com/adwaith-rk/threadly/internal/messaging"
	"github.com/adwaith-rk/threadly/internal/repositories"
	"github.com/adwaith-rk/threadly/internal/utils"
)

// Wired once by api.SetupRouter before any request is served.
var (
	Messaging   *messaging.Service
	ChannelMsgs *repositories.ChannelMessages
	DirectMsgs  *repositories.DirectMessages
)

// requestUserID pulls the authenticated user id set by the auth middleware.
// ok=false means the response has already been written.
func requestUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.UserID(r))
	if err != nil {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid " + name,
		})
		return uuid.Nil, false
	}
	return id, true
}
