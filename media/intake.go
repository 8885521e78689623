//go:generate go run go.uber.org/mock/mockgen -source=intake.go -destination=../mocks/mock_media_intake.go -package=mocks
// Package media stores uploaded attachments on the content volume.
// It owns naming, size bounding and type checking; callers only ever see the
// resulting public reference.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"chatline/domain"
	"chatline/domain/mimetypes"
	"chatline/errors"
)

const (
	// DefaultMaxBytes bounds a single attachment to 10 MiB.
	DefaultMaxBytes = int64(10 << 20)

	// Sniffing the first 64 bytes (MagicBytes) is enough for every allowed type.
	sniffSize = 64
)

// DefaultAllowList is the media allow-list used when none is configured.
func DefaultAllowList() []mimetypes.MIME {
	return []mimetypes.MIME{
		mimetypes.ImageJPEG,
		mimetypes.ImagePNG,
		mimetypes.VideoMP4,
		mimetypes.AudioMPEG,
	}
}

type IMediaIntake interface {
	Accept(ctx context.Context, declaredType string, payload io.Reader, declaredFilename string) (domain.StorageRef, mimetypes.MIME, int64, error)
	Remove(ref domain.StorageRef) error
}

type Intake struct {
	log          *slog.Logger
	root         string
	publicPrefix string
	maxBytes     int64
	allowed      map[mimetypes.MIME]struct{}
}

// NewIntake prepares the content volume rooted at root. References returned by
// Accept are public paths under publicPrefix (e.g. "/uploads").
func NewIntake(log *slog.Logger, root, publicPrefix string, maxBytes int64, allowed []mimetypes.MIME) (*Intake, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("content volume unavailable: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowList()
	}

	allowSet := make(map[mimetypes.MIME]struct{}, len(allowed))
	for _, m := range allowed {
		allowSet[m] = struct{}{}
	}

	return &Intake{
		log:          log,
		root:         root,
		publicPrefix: publicPrefix,
		maxBytes:     maxBytes,
		allowed:      allowSet,
	}, nil
}

// Accept validates one attachment and writes it to the content volume.
// The payload is spooled to a temp file and atomically renamed, so either the
// final file exists with all its bytes synced, or nothing remains on disk.
func (in *Intake) Accept(ctx context.Context, declaredType string, payload io.Reader, declaredFilename string) (domain.StorageRef, mimetypes.MIME, int64, error) {
	declared := mimetypes.Normalize(declaredType)
	if _, ok := in.allowed[declared]; !ok {
		return "", declared, 0, fmt.Errorf("%w: %q", errors.ErrInvalidMediaType, declaredType)
	}

	magicBytes := make([]byte, sniffSize)
	n, err := io.ReadFull(payload, magicBytes)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", declared, 0, fmt.Errorf("%w: %v", errors.ErrStorageWriteFailed, err)
	}
	magicBytes = magicBytes[:n]

	// The declared type is client input; the magic bytes are the truth.
	if detected := mimetype.Detect(magicBytes); !detected.Is(string(declared)) {
		return "", declared, 0, fmt.Errorf("%w: declared %s, payload is %s",
			errors.ErrInvalidMediaType, declared, detected.String())
	}

	name := in.storageName(declaredFilename, declared)
	ref, size, err := in.spool(ctx, name, io.MultiReader(bytes.NewReader(magicBytes), payload))
	if err != nil {
		return "", declared, 0, err
	}

	in.log.Debug("media stored",
		"ref", ref,
		"type", declared,
		"bytes", size)
	return ref, declared, size, nil
}

// Remove deletes the attachment a ref points at. Used for orphan cleanup when
// a message fails to persist after its media was already written.
func (in *Intake) Remove(ref domain.StorageRef) error {
	name := path.Base(ref.String())
	if name == "." || name == "/" {
		return nil
	}
	return os.Remove(filepath.Join(in.root, name))
}

func (in *Intake) spool(ctx context.Context, name string, payload io.Reader) (domain.StorageRef, int64, error) {
	tmp, err := os.CreateTemp(in.root, "spool-*")
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", errors.ErrStorageWriteFailed, err)
	}
	tmpName := tmp.Name()

	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	// One extra byte turns "at the limit" into "over the limit" detectably.
	written, err := io.Copy(tmp, io.LimitReader(&ctxReader{ctx: ctx, r: payload}, in.maxBytes+1))
	if err != nil {
		discard()
		return "", 0, fmt.Errorf("%w: %v", errors.ErrStorageWriteFailed, err)
	}
	if written > in.maxBytes {
		discard()
		return "", 0, fmt.Errorf("%w: limit is %d bytes", errors.ErrPayloadTooLarge, in.maxBytes)
	}

	if err = tmp.Sync(); err != nil {
		discard()
		return "", 0, fmt.Errorf("%w: %v", errors.ErrStorageWriteFailed, err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", 0, fmt.Errorf("%w: %v", errors.ErrStorageWriteFailed, err)
	}

	if err = os.Rename(tmpName, filepath.Join(in.root, name)); err != nil {
		_ = os.Remove(tmpName)
		return "", 0, fmt.Errorf("%w: %v", errors.ErrStorageWriteFailed, err)
	}

	return domain.StorageRef(path.Join(in.publicPrefix, name)), written, nil
}

// storageName builds a collision-resistant name: nanosecond timestamp plus a
// short random suffix. The caller-supplied filename only ever contributes its
// extension, and a sanitized one at that.
func (in *Intake) storageName(declaredFilename string, declared mimetypes.MIME) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(declaredFilename)))
	if !safeExt(ext) {
		ext = extensionFor(declared)
	}
	short := uuid.NewString()[:8]
	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), short, ext)
}

func safeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func extensionFor(m mimetypes.MIME) string {
	switch m {
	case mimetypes.ImageJPEG:
		return ".jpg"
	case mimetypes.ImagePNG:
		return ".png"
	case mimetypes.VideoMP4:
		return ".mp4"
	case mimetypes.AudioMPEG:
		return ".mp3"
	default:
		return ".bin"
	}
}

// ctxReader makes a plain reader cancellation-aware so a dead client cannot
// keep a spool running forever.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
