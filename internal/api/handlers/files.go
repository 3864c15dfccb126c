package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/adwaith-rk/threadly/internal/config"
	"github.com/adwaith-rk/threadly/internal/crypto"
	"github.com/adwaith-rk/threadly/internal/repositories"
	"github.com/adwaith-rk/threadly/internal/utils"
)

const presignExpiry = 15 * time.Minute

// POST /files/presign
// PresignUpload godoc
// @Summary Get a presigned upload URL for an attachment
// @Tags Files
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/files/presign [post]
func PresignUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	var input struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Filename == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return
	}

	key := fmt.Sprintf("attachments/%s_%s", uuid.New(), path.Base(input.Filename))
	url, err := repositories.GeneratePresignedPutURL(r.Context(), key, presignExpiry)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to presign upload",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Upload URL created",
		Data: map[string]any{
			"key":       key,
			"uploadUrl": url,
			"expiresIn": presignExpiry.String(),
		},
	})
}

// GET /files/download?key=
func PresignDownload(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Missing key",
		})
		return
	}

	exists, err := repositories.VerifyObjectExists(r.Context(), key)
	if err != nil || !exists {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Attachment not found",
		})
		return
	}

	url, err := repositories.GeneratePresignedGetURL(r.Context(), key, presignExpiry)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to presign download",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Download URL created",
		Data:    map[string]any{"downloadUrl": url},
	})
}

// GET /files/verify?key=&hmac=
// VerifyAttachment recomputes the integrity tag over the stored object and
// compares it against the tag recorded at upload time. Verification is
// independent of any message content.
func VerifyAttachment(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	tag := r.URL.Query().Get("hmac")
	if key == "" || tag == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Missing key or hmac",
		})
		return
	}

	body, err := repositories.OpenObject(r.Context(), key)
	if err != nil {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Attachment not found",
		})
		return
	}
	defer body.Close()

	valid, err := crypto.VerifyReader(body, tag, config.Envs.HMACKey)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to verify attachment",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Attachment verified",
		Data:    map[string]any{"valid": valid},
	})
}
