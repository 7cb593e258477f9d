// Package blob stores the original bytes of ingested documents. Documents
// rows carry only a blob reference and checksum; the content itself lives
// here so reprocessing and audits can always reach the source.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
)

// Store persists and retrieves raw document content by opaque reference.
type Store interface {
	// Put streams content into the store and returns the reference and the
	// SHA-256 checksum of the stored bytes.
	Put(ctx context.Context, r io.Reader, docType models.DocumentType, name string) (ref, checksum string, err error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// FileStore lays blobs out under root as
// documents/{type}/{YYYY}/{MM}/{uuid}{ext}. References are paths relative
// to root, so the store can be relocated wholesale.
type FileStore struct {
	root   string
	logger logging.Logger
	now    func() time.Time
}

// NewFileStore creates the store rooted at dir, creating it if needed.
func NewFileStore(dir string, logger logging.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
		return nil, fmt.Errorf("creating blob root %s: %w", dir, err)
	}
	return &FileStore{
		root:   dir,
		logger: logger.WithField("component", "blob.FileStore"),
		now:    time.Now,
	}, nil
}

func (f *FileStore) Put(_ context.Context, r io.Reader, docType models.DocumentType, name string) (string, string, error) {
	kind := string(docType)
	if kind == "" {
		kind = "unclassified"
	}
	now := f.now().UTC()
	rel := filepath.Join("documents", kind, now.Format("2006"), now.Format("01"),
		uuid.New().String()+extension(name))

	full := filepath.Join(f.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), models.PermissionDirectory); err != nil {
		return "", "", fmt.Errorf("creating blob directory: %w", err)
	}

	out, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, models.PermissionDataFile)
	if err != nil {
		return "", "", fmt.Errorf("creating blob %s: %w", rel, err)
	}

	hash := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, hash), r); err != nil {
		_ = out.Close()
		_ = os.Remove(full)
		return "", "", fmt.Errorf("writing blob %s: %w", rel, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(full)
		return "", "", fmt.Errorf("closing blob %s: %w", rel, err)
	}

	checksum := hex.EncodeToString(hash.Sum(nil))
	f.logger.Debug("stored blob",
		logging.Field{Key: "ref", Value: rel},
		logging.Field{Key: "checksum", Value: checksum})
	return rel, checksum, nil
}

func (f *FileStore) Get(_ context.Context, ref string) ([]byte, error) {
	clean := filepath.Clean(ref)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid blob reference %q", ref)
	}
	data, err := os.ReadFile(filepath.Join(f.root, clean))
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", ref, err)
	}
	return data, nil
}

// extension keeps the original file extension so stored blobs stay openable
// by type-aware tools. Anything odd collapses to no extension.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\ ") {
		return ""
	}
	return ext
}
