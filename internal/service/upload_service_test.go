package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
	"github.com/noah-isme/liquidation-verify-api/pkg/jobs"
	"github.com/noah-isme/liquidation-verify-api/pkg/storage"
)

type objectStoreStub struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newObjectStoreStub() *objectStoreStub {
	return &objectStoreStub{objects: make(map[string][]byte)}
}

func (s *objectStoreStub) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://cdn.test/" + key, nil
}

type enqueuerStub struct {
	jobs []jobs.Job
}

func (e *enqueuerStub) TryEnqueue(job jobs.Job) error {
	e.jobs = append(e.jobs, job)
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadServiceStoresImageAndQueuesThumbnail(t *testing.T) {
	store := newObjectStoreStub()
	queue := &enqueuerStub{}
	audit := &auditStub{}
	svc := NewUploadService(store, nil, UploadServiceConfig{}, WithThumbnailQueue(queue), WithUploadAudit(audit))

	data := pngBytes(t, 40, 20)
	resp, err := svc.Upload(context.Background(), FileUpload{Filename: "shelf.jpeg", Data: data}, salesRep())
	require.NoError(t, err)
	assert.Equal(t, "image/png", resp.MimeType)
	assert.True(t, strings.HasPrefix(resp.Key, UploadKindProof+"/"))
	assert.True(t, strings.HasSuffix(resp.Key, ".png"))
	assert.Equal(t, "https://cdn.test/"+resp.Key, resp.URL)
	assert.Equal(t, int64(len(data)), resp.Size)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, resp.Key, queue.jobs[0].Payload.(ThumbnailJob).Key)
	require.Len(t, audit.logs, 1)
}

func TestUploadServiceRejectsDisallowedType(t *testing.T) {
	svc := NewUploadService(newObjectStoreStub(), nil, UploadServiceConfig{})
	_, err := svc.Upload(context.Background(), FileUpload{Filename: "notes.txt", Data: []byte("plain text body")}, salesRep())
	require.Error(t, err)
	assert.Equal(t, "mime type not allowed", appErrors.FromError(err).Message)
}

func TestUploadServiceRejectsOversizedFile(t *testing.T) {
	svc := NewUploadService(newObjectStoreStub(), nil, UploadServiceConfig{MaxFileSize: 10})
	_, err := svc.Upload(context.Background(), FileUpload{Data: pngBytes(t, 4, 4)}, salesRep())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadServiceStoreFailureIsUpstream(t *testing.T) {
	store := newObjectStoreStub()
	store.err = errors.New("bucket unavailable")
	svc := NewUploadService(store, nil, UploadServiceConfig{})
	_, err := svc.Upload(context.Background(), FileUpload{Data: pngBytes(t, 4, 4)}, salesRep())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}

func TestUploadServiceDataURL(t *testing.T) {
	store := newObjectStoreStub()
	queue := &enqueuerStub{}
	svc := NewUploadService(store, nil, UploadServiceConfig{}, WithThumbnailQueue(queue))

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 8, 8))
	resp, err := svc.UploadDataURL(context.Background(), dataURL, UploadKindSignature, salesRep())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Key, UploadKindSignature+"/"))
	assert.Empty(t, queue.jobs)

	_, err = svc.UploadDataURL(context.Background(), "data:image/png,raw", UploadKindSignature, salesRep())
	require.Error(t, err)
}

func TestUploadServiceOpenVerifiesToken(t *testing.T) {
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	store := storage.NewSignedLocalStore(files, signer, "/api/v1/files")
	svc := NewUploadService(store, nil, UploadServiceConfig{}, WithLocalFiles(files, signer))

	resp, err := svc.Upload(context.Background(), FileUpload{Data: pngBytes(t, 4, 4)}, salesRep())
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, resp.Key))
	require.NoError(t, statErr)

	token, _, err := signer.Generate(resp.Key, resp.Key)
	require.NoError(t, err)
	download, err := svc.Open(context.Background(), "/"+resp.Key, token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "image/png", download.MimeType)
	assert.Positive(t, download.SizeBytes)

	otherToken, _, err := signer.Generate("proofs/other.png", "proofs/other.png")
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), resp.Key, otherToken)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestThumbnailHandlerStoresResizedJPEG(t *testing.T) {
	store := newObjectStoreStub()
	handler := NewThumbnailHandler(store, 16, nil)

	err := handler(context.Background(), jobs.Job{Payload: ThumbnailJob{Key: "proofs/2026/10/16/a.png", Data: pngBytes(t, 64, 32)}})
	require.NoError(t, err)

	data, ok := store.objects["thumbs/proofs/2026/10/16/a.jpg"]
	require.True(t, ok)
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	assert.Error(t, handler(context.Background(), jobs.Job{Payload: "bad"}))
}
