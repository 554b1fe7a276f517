package model

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind separates candidate recordings from admin images.
type MediaKind string

const (
	MediaAudio MediaKind = "AUDIO"
	MediaImage MediaKind = "IMAGE"
)

// MediaFile is an uploaded file stored under the upload directory.
type MediaFile struct {
	ID         uuid.UUID `json:"id"`
	Kind       MediaKind `json:"kind"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedBy string    `json:"uploadedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UploadResult is returned to the client after an upload.
type UploadResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
