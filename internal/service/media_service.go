package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/model"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed MIME types per media kind.
var allowedMIMETypes = map[model.MediaKind]map[string]string{
	model.MediaAudio: {
		"audio/webm": ".webm",
		"audio/ogg":  ".ogg",
		"audio/mpeg": ".mp3",
		"audio/wav":  ".wav",
		"audio/mp4":  ".m4a",
	},
	model.MediaImage: {
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	},
}

// MediaStore records uploads.
type MediaStore interface {
	Create(ctx context.Context, f *model.MediaFile) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// MediaService handles file upload operations.
type MediaService struct {
	cfg  *config.Config
	repo MediaStore
	log  zerolog.Logger
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config, repo MediaStore, log zerolog.Logger) *MediaService {
	return &MediaService{
		cfg:  cfg,
		repo: repo,
		log:  log.With().Str("component", "media_service").Logger(),
	}
}

// SaveUpload stores an uploaded file under a UUID filename and records it.
func (s *MediaService) SaveUpload(ctx context.Context, uploadedBy string, kind model.MediaKind, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	contentType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil {
		contentType = header.Header.Get("Content-Type")
	}
	ext, ok := allowedMIMETypes[kind][contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(kind), ", "))
	}

	if header.Size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	id := uuid.New()
	filename := id.String() + ext
	destPath := filepath.Join(s.cfg.UploadDir, filename)

	dst, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	// header.Size comes from the client; the copy limit is what enforces the cap.
	written, err := io.Copy(dst, io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if written > s.cfg.MaxUploadBytes {
		os.Remove(destPath)
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.cfg.MaxUploadBytes)
	}

	record := &model.MediaFile{
		ID:         id,
		Kind:       kind,
		FileName:   filename,
		MimeType:   contentType,
		SizeBytes:  written,
		UploadedBy: uploadedBy,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("record upload: %w", err)
	}

	s.log.Info().
		Str("file_id", id.String()).
		Str("kind", string(kind)).
		Int64("size", written).
		Msg("File uploaded")
	return &model.UploadResult{ID: id.String(), URL: "/uploads/" + filename}, nil
}

// Exists reports whether an uploaded file id is known.
func (s *MediaService) Exists(ctx context.Context, id string) (bool, error) {
	fileID, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}
	return s.repo.Exists(ctx, fileID)
}

func allowedTypes(kind model.MediaKind) []string {
	types := make([]string, 0, len(allowedMIMETypes[kind]))
	for t := range allowedMIMETypes[kind] {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
