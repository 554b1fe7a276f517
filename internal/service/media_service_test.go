package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/model"
)

type memoryMedia struct {
	files map[uuid.UUID]*model.MediaFile
}

func (m *memoryMedia) Create(_ context.Context, f *model.MediaFile) error {
	m.files[f.ID] = f
	return nil
}

func (m *memoryMedia) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.files[id]
	return ok, nil
}

func uploadForm(t *testing.T, contentType string, body []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="answer.bin"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	file, header, err := req.FormFile("file")
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file, header
}

func newMediaService(t *testing.T, maxBytes int64) (*MediaService, *memoryMedia, string) {
	dir := t.TempDir()
	store := &memoryMedia{files: map[uuid.UUID]*model.MediaFile{}}
	cfg := &config.Config{UploadDir: dir, MaxUploadBytes: maxBytes}
	return NewMediaService(cfg, store, zerolog.Nop()), store, dir
}

func TestSaveUpload_Audio(t *testing.T) {
	svc, store, dir := newMediaService(t, 1024)
	file, header := uploadForm(t, "audio/webm;codecs=opus", []byte("webm-bytes"))

	res, err := svc.SaveUpload(context.Background(), "cand-1", model.MediaAudio, file, header)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(res.URL, ".webm"))

	id := uuid.MustParse(res.ID)
	require.Contains(t, store.files, id)
	assert.Equal(t, "audio/webm", store.files[id].MimeType)
	assert.Equal(t, int64(10), store.files[id].SizeBytes)

	data, err := os.ReadFile(filepath.Join(dir, id.String()+".webm"))
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(data))

	ok, err := svc.Exists(context.Background(), res.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Exists(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveUpload_RejectsWrongKind(t *testing.T) {
	svc, store, _ := newMediaService(t, 1024)
	file, header := uploadForm(t, "image/png", []byte("png"))

	_, err := svc.SaveUpload(context.Background(), "cand-1", model.MediaAudio, file, header)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
	assert.Empty(t, store.files)
}

func TestSaveUpload_TooLarge(t *testing.T) {
	svc, store, dir := newMediaService(t, 4)
	file, header := uploadForm(t, "image/png", []byte("too many bytes"))

	_, err := svc.SaveUpload(context.Background(), "admin", model.MediaImage, file, header)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, store.files)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}
