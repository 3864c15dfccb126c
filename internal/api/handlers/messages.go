package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/adwaith-rk/threadly/internal/crypto"
	"github.com/adwaith-rk/threadly/internal/messaging"
	"github.com/adwaith-rk/threadly/internal/models"
	"github.com/adwaith-rk/threadly/internal/repositories"
	"github.com/adwaith-rk/threadly/internal/utils"
)

// ChannelMessages handles GET (paginated fetch) and POST (send) on
// /{channelId}/messages.
//
// ChannelMessages godoc
// @Summary Fetch or send channel messages
// @Description GET returns a decrypted page (oldest first); POST encrypts and stores a new message
// @Tags Messages
// @Accept json
// @Produce json
// @Param channelId path string true "Channel ID"
// @Success 200 {object} utils.Payload
// @Failure 403 {object} utils.Payload
// @Router /api/v1/channels/{channelId}/messages [get]
func ChannelMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	channelID, ok := pathUUID(w, r, "channelId")
	if !ok {
		return
	}

	var channel models.Channel
	if err := repositories.DB.Preload("Members").First(&channel, "id = ?", channelID).Error; err != nil {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Channel not found",
		})
		return
	}
	if !channel.HasMember(userID) {
		utils.JSONResponse(w, http.StatusForbidden, utils.Payload{
			Success: false,
			Message: "Not a channel member",
		})
		return
	}

	switch r.Method {
	case http.MethodGet:
		fetchChannelMessages(w, r, &channel)
	case http.MethodPost:
		sendChannelMessage(w, r, &channel, userID)
	default:
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
	}
}

func fetchChannelMessages(w http.ResponseWriter, r *http.Request, channel *models.Channel) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	// Members read with the channel's own private key, unwrapped from the
	// vault at request time. If the keyring is unusable the page still
	// renders from plaintext mirrors.
	priv, err := crypto.UnwrapStoredPrivateKey(channel.Keyring)
	if err != nil {
		log.Printf("channel %s keyring unusable: %v", channel.ID, err)
		priv = nil
	}

	msgs, err := Messaging.FetchChannelPage(r.Context(), channel, page, size, priv)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to fetch messages",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Messages retrieved",
		Data:    msgs,
	})
}

type messageInput struct {
	Content  string  `json:"content"`
	FileURL  *string `json:"fileUrl"`
	FileHMAC *string `json:"fileHmac"`
}

func sendChannelMessage(w http.ResponseWriter, r *http.Request, channel *models.Channel, userID uuid.UUID) {
	var input messageInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return
	}

	msg, err := Messaging.SendChannelMessage(r.Context(), channel, userID, messaging.SendInput{
		Content:  input.Content,
		FileURL:  input.FileURL,
		FileHMAC: input.FileHMAC,
	})
	if err != nil {
		status, message := writeErrorStatus(err)
		utils.JSONResponse(w, status, utils.Payload{
			Success: false,
			Message: message,
		})
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Message created",
		Data:    msg,
	})
}

// ChannelMessageByID handles PATCH (edit) and DELETE (tombstone) on
// /{channelId}/messages/{messageId}.
func ChannelMessageByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch && r.Method != http.MethodDelete {
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
	messageID, ok := pathUUID(w, r, "messageId")
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

	msg, err := ChannelMsgs.GetByID(r.Context(), messageID)
	if err != nil || msg.ChannelID != channelID {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Message not found",
		})
		return
	}

	if r.Method == http.MethodPatch {
		var input struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
				Success: false,
				Message: "Invalid input",
			})
			return
		}
		err = Messaging.EditChannelMessage(r.Context(), &channel, msg, userID, input.Content)
	} else {
		err = Messaging.DeleteChannelMessage(r.Context(), &channel, msg, userID)
	}

	if err != nil {
		status, message := writeErrorStatus(err)
		utils.JSONResponse(w, status, utils.Payload{
			Success: false,
			Message: message,
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Message updated",
		Data:    msg,
	})
}

func writeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, messaging.ErrNotAuthor):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, messaging.ErrTombstoned):
		return http.StatusGone, "Message has been deleted"
	case errors.Is(err, messaging.ErrMissingContent):
		return http.StatusBadRequest, "No content or fileUrl"
	case errors.Is(err, crypto.ErrEncryptionInputInvalid):
		return http.StatusBadRequest, "Invalid encryption input"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
