package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mockielts/mockielts-backend/internal/middleware"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/response"
	"github.com/mockielts/mockielts-backend/internal/service"
)

// MediaHandler handles media upload endpoints.
type MediaHandler struct {
	mediaService *service.MediaService
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadRecording godoc
// POST /api/v1/files/upload
// Uploads a candidate's speaking recording and returns its id and URL.
func (h *MediaHandler) UploadRecording(c *gin.Context) {
	h.upload(c, model.MediaAudio)
}

// UploadMedia godoc
// POST /api/v1/admin/media/upload?kind=IMAGE|AUDIO
// Uploads section media such as listening audio or diagram images.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	kind := model.MediaKind(strings.ToUpper(c.DefaultQuery("kind", string(model.MediaImage))))
	if kind != model.MediaImage && kind != model.MediaAudio {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"kind": "kind must be IMAGE or AUDIO"})
		return
	}
	h.upload(c, kind)
}

func (h *MediaHandler) upload(c *gin.Context, kind model.MediaKind) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	result, err := h.mediaService.SaveUpload(c.Request.Context(), claims.UserID, kind, file, header)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}
