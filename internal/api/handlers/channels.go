package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adwaith-rk/threadly/internal/crypto"
	"github.com/adwaith-rk/threadly/internal/models"
	"github.com/adwaith-rk/threadly/internal/repositories"
	"github.com/adwaith-rk/threadly/internal/utils"
)

// POST /: create a channel
// CreateChannel godoc
// @Summary Create a channel
// @Description Creates a channel, provisions its shared keypair, and adds the creator as a member
// @Tags Channels
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/channels [post]
func CreateChannel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodGet:
		ListChannels(w, r)
		return
	default:
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var input struct {
		Name        string `json:"name"`
		WorkspaceID string `json:"workspaceId"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil || input.Name == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return
	}

	channel := models.Channel{
		Name:      input.Name,
		CreatorID: userID,
	}
	if input.WorkspaceID != "" {
		wsID, err := uuid.Parse(input.WorkspaceID)
		if err != nil {
			utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
				Success: false,
				Message: "Invalid workspaceId",
			})
			return
		}
		channel.WorkspaceID = wsID
	}

	// The channel's shared keypair is what every member's messages get
	// wrapped for. It is generated exactly once, here.
	if _, err := crypto.Provision(&channel.Keyring); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to provision channel keys",
		})
		return
	}

	err := repositories.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&channel).Error; err != nil {
			return err
		}
		member := models.ChannelMember{ChannelID: channel.ID, UserID: userID}
		return tx.Create(&member).Error
	})
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to create channel",
		})
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Channel created",
		Data:    channel,
	})
}

// GET /: list channels the requester belongs to
func ListChannels(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var channels []models.Channel
	err := repositories.DB.
		Joins("JOIN channel_members ON channel_members.channel_id = channels.id").
		Where("channel_members.user_id = ?", userID).
		Find(&channels).Error
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Channels retrieved",
		Data:    channels,
	})
}

// POST /{channelId}/members: join a channel
func JoinChannel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	channelID, ok := pathUUID(w, r, "channelId")
	if !ok {
		return
	}

	var channel models.Channel
	if err := repositories.DB.First(&channel, "id = ?", channelID).Error; err != nil {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Channel not found",
		})
		return
	}

	member := models.ChannelMember{ChannelID: channelID, UserID: userID}
	if err := repositories.DB.Create(&member).Error; err != nil {
		utils.JSONResponse(w, http.StatusConflict, utils.Payload{
			Success: false,
			Message: "Already a member",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Joined channel",
	})
}
