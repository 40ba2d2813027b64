package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
	"github.com/noah-isme/liquidation-verify-api/pkg/jobs"
	"github.com/noah-isme/liquidation-verify-api/pkg/storage"
)

// Upload kinds. They prefix object keys.
const (
	UploadKindProof     = "proofs"
	UploadKindSignature = "signatures"

	thumbnailJobType = "proof_thumbnail"
)

type fileOpener interface {
	Open(filename string) (*os.File, error)
}

type downloadSigner interface {
	Parse(token string, allowExpired bool) (subject, relPath string, expiresAt time.Time, err error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// FileUpload carries the raw bytes of one uploaded file.
type FileUpload struct {
	Filename string
	Kind     string
	Data     []byte
}

// FileDownload is an opened locally stored file.
type FileDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// UploadServiceConfig holds validation limits.
type UploadServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// UploadService stores proof photos and signatures in the configured object store.
type UploadService struct {
	store      storage.ObjectStore
	files      fileOpener
	signer     downloadSigner
	thumbnails jobEnqueuer
	audit      auditLogger
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        UploadServiceConfig
	mimeSet    map[string]struct{}
	now        func() time.Time
}

// UploadServiceOption configures optional collaborators.
type UploadServiceOption func(*UploadService)

// WithLocalFiles enables signed downloads of locally stored files.
func WithLocalFiles(files fileOpener, signer downloadSigner) UploadServiceOption {
	return func(s *UploadService) {
		s.files = files
		s.signer = signer
	}
}

// WithThumbnailQueue enables thumbnail generation for image uploads.
func WithThumbnailQueue(queue jobEnqueuer) UploadServiceOption {
	return func(s *UploadService) {
		s.thumbnails = queue
	}
}

// WithUploadAudit records an audit row per upload.
func WithUploadAudit(audit auditLogger) UploadServiceOption {
	return func(s *UploadService) {
		s.audit = audit
	}
}

// WithUploadMetrics counts uploads per kind and result.
func WithUploadMetrics(metrics *MetricsService) UploadServiceOption {
	return func(s *UploadService) {
		s.metrics = metrics
	}
}

// NewUploadService constructs the service with defaults.
func NewUploadService(store storage.ObjectStore, logger *zap.Logger, cfg UploadServiceConfig, opts ...UploadServiceOption) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "image/webp", "image/gif", "application/pdf"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	svc := &UploadService{
		store:   store,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Upload validates and stores a file, returning its public or signed URL.
func (s *UploadService) Upload(ctx context.Context, upload FileUpload, actor *models.JWTClaims) (*dto.UploadResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	kind := upload.Kind
	if kind == "" {
		kind = UploadKindProof
	}
	if kind != UploadKindProof && kind != UploadKindSignature {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported upload kind")
	}
	if len(upload.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if int64(len(upload.Data)) > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType := detectMime(upload.Data)
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	key := s.objectKey(kind, upload.Filename, mimeType)
	url, err := s.store.Put(ctx, key, mimeType, upload.Data)
	if err != nil {
		s.observe(kind, "error")
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to store upload")
	}
	s.observe(kind, "success")

	if kind == UploadKindProof && strings.HasPrefix(mimeType, "image/") {
		s.enqueueThumbnail(key, upload.Data)
	}
	s.emitAudit(ctx, actor.UserID, key, mimeType)
	return &dto.UploadResponse{URL: url, Key: key, MimeType: mimeType, Size: int64(len(upload.Data))}, nil
}

// UploadDataURL stores a base64 data URL such as a captured signature image.
func (s *UploadService) UploadDataURL(ctx context.Context, dataURL, kind string, actor *models.JWTClaims) (*dto.UploadResponse, error) {
	data, err := decodeDataURL(dataURL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid image data")
	}
	return s.Upload(ctx, FileUpload{Filename: "signature.png", Kind: kind, Data: data}, actor)
}

// Open validates a download token and opens the locally stored file.
func (s *UploadService) Open(ctx context.Context, key, token string) (*FileDownload, error) {
	if s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file downloads are not served by this storage provider")
	}
	key = strings.TrimPrefix(key, "/")
	subject, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if subject != key || relPath != key {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file metadata")
	}
	return &FileDownload{
		File:      file,
		Filename:  path.Base(relPath),
		MimeType:  mimeFromExtension(path.Ext(relPath)),
		SizeBytes: info.Size(),
	}, nil
}

func (s *UploadService) objectKey(kind, original, mimeType string) string {
	ext := strings.ToLower(path.Ext(original))
	if ext == "" || mimeFromExtension(ext) != mimeType {
		ext = mimeExtension(mimeType)
	}
	return fmt.Sprintf("%s/%s/%s%s", kind, s.now().UTC().Format("2006/01/02"), uuid.NewString(), ext)
}

func (s *UploadService) enqueueThumbnail(key string, data []byte) {
	if s.thumbnails == nil {
		return
	}
	err := s.thumbnails.TryEnqueue(jobs.Job{
		ID:       key,
		Type:     thumbnailJobType,
		Payload:  ThumbnailJob{Key: key, Data: data},
		Enqueued: s.now(),
	})
	if err != nil {
		s.logger.Warn("failed to enqueue thumbnail", zap.String("key", key), zap.Error(err))
	}
}

func (s *UploadService) observe(kind, result string) {
	if s.metrics != nil {
		s.metrics.ObserveUpload(kind, result)
	}
}

func (s *UploadService) emitAudit(ctx context.Context, userID, key, mimeType string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionUpload,
		Resource:   "upload",
		ResourceID: &key,
		NewValues:  []byte(fmt.Sprintf(`{"mimeType":%q}`, mimeType)),
		IPAddress:  "system",
		UserAgent:  "upload-service",
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// ThumbnailJob is the queue payload for proof thumbnails.
type ThumbnailJob struct {
	Key  string
	Data []byte
}

// ThumbnailKey is where the thumbnail of key is stored.
func ThumbnailKey(key string) string {
	base := strings.TrimSuffix(key, path.Ext(key))
	return path.Join("thumbs", base+".jpg")
}

// NewThumbnailHandler returns a queue handler that resizes proof images to width and stores a JPEG.
func NewThumbnailHandler(store storage.ObjectStore, width int, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if width <= 0 {
		width = 320
	}
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(ThumbnailJob)
		if !ok {
			return fmt.Errorf("unexpected thumbnail payload %T", job.Payload)
		}
		img, err := imaging.Decode(bytes.NewReader(payload.Data), imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		thumb := imaging.Resize(img, width, 0, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
			return fmt.Errorf("encode thumbnail: %w", err)
		}
		key := ThumbnailKey(payload.Key)
		if _, err := store.Put(ctx, key, "image/jpeg", buf.Bytes()); err != nil {
			return fmt.Errorf("store thumbnail: %w", err)
		}
		logger.Debug("thumbnail stored", zap.String("key", key), zap.Int("attempt", job.Attempt))
		return nil
	}
}

// IsDataURL reports whether value is an inline data URL rather than a stored link.
func IsDataURL(value string) bool {
	return strings.HasPrefix(value, "data:")
}

func decodeDataURL(value string) ([]byte, error) {
	if !IsDataURL(value) {
		return nil, fmt.Errorf("not a data url")
	}
	comma := strings.IndexByte(value, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data url")
	}
	meta, payload := value[len("data:"):comma], value[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("data url must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return data, nil
}

func detectMime(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

var mimeExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

func mimeExtension(mimeType string) string {
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	return ".bin"
}

func mimeFromExtension(ext string) string {
	ext = strings.ToLower(ext)
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	for mt, e := range mimeExtensions {
		if e == ext {
			return mt
		}
	}
	return "application/octet-stream"
}
