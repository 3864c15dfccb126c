package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/adwaith-rk/threadly/internal/crypto"
	"github.com/adwaith-rk/threadly/internal/messaging"
	"github.com/adwaith-rk/threadly/internal/models"
	"github.com/adwaith-rk/threadly/internal/repositories"
	"github.com/adwaith-rk/threadly/internal/utils"
)

// DirectMessages handles GET (paginated fetch) and POST (send) on
// /{recipientId}.
func DirectMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	recipientID, ok := pathUUID(w, r, "recipientId")
	if !ok {
		return
	}

	var recipient models.User
	if err := repositories.DB.First(&recipient, "id = ?", recipientID).Error; err != nil {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Recipient not found",
		})
		return
	}

	switch r.Method {
	case http.MethodGet:
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))

		// The reader decrypts with their own private key. Messages they sent
		// were wrapped for the other party and fall back to the mirror.
		var reader models.User
		if err := repositories.DB.First(&reader, "id = ?", userID).Error; err != nil {
			utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
				Success: false,
				Message: "Unauthorized",
			})
			return
		}
		priv, err := crypto.UnwrapStoredPrivateKey(reader.Keyring)
		if err != nil {
			log.Printf("user %s keyring unusable: %v", reader.ID, err)
			priv = nil
		}

		msgs, err := Messaging.FetchDirectPage(r.Context(), userID, recipientID, page, size, priv)
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

	case http.MethodPost:
		if !recipient.Keyring.Provisioned() {
			utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
				Success: false,
				Message: "Recipient's public key is missing",
			})
			return
		}

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

		msg, err := Messaging.SendDirectMessage(r.Context(), userID, &recipient, messaging.SendInput{
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

	default:
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
	}
}

// DirectMessageByID handles PATCH (edit) and DELETE (tombstone) on
// /{recipientId}/{messageId}.
func DirectMessageByID(w http.ResponseWriter, r *http.Request) {
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
	messageID, ok := pathUUID(w, r, "messageId")
	if !ok {
		return
	}

	msg, err := DirectMsgs.GetByID(r.Context(), messageID)
	if err != nil {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Message not found",
		})
		return
	}
	if msg.UserOne != userID && msg.UserTwo != userID {
		utils.JSONResponse(w, http.StatusForbidden, utils.Payload{
			Success: false,
			Message: "Forbidden",
		})
		return
	}

	if r.Method == http.MethodPatch {
		// Edits rewrap for the party the original was wrapped for: the pair
		// member who is not the author.
		otherID := msg.UserOne
		if msg.UserID == otherID {
			otherID = msg.UserTwo
		}
		var other models.User
		if err := repositories.DB.First(&other, "id = ?", otherID).Error; err != nil {
			utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
				Success: false,
				Message: "Failed to load recipient",
			})
			return
		}

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
		err = Messaging.EditDirectMessage(r.Context(), msg, &other, userID, input.Content)
	} else {
		err = Messaging.DeleteDirectMessage(r.Context(), msg, userID)
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
