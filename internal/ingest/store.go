// Package ingest stores uploaded audio files under the uploads root.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/satriahrh/soundalike/domain"
)

const DefaultMaxBytes = 10 * 1024 * 1024

// allowedTypes maps accepted upload MIME types to the extension used when
// the client filename has none
var allowedTypes = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/ogg":   ".ogg",
}

// ContentTypes maps served file extensions to their audio content type
var ContentTypes = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".ogg": "audio/ogg",
}

// Store writes uploads to Dir
type Store struct {
	Dir      string
	MaxBytes int64
}

// Saved describes a stored upload
type Saved struct {
	OriginalName string
	Filename     string // base name under Dir
	Path         string
	Size         int64
}

// NewStore creates the uploads directory if needed
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Store{Dir: dir, MaxBytes: maxBytes}, nil
}

// Save validates the file header and copies the content to a fresh
// <uuid><ext> file
func (s *Store) Save(header *multipart.FileHeader) (*Saved, error) {
	if header == nil {
		return nil, invalidUpload(errors.New("no file uploaded"))
	}

	ext, err := s.validate(header.Filename, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		return nil, err
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	return s.write(header.Filename, ext, src)
}

func (s *Store) validate(filename, contentType string, size int64) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", invalidUpload(fmt.Errorf("unreadable content type %q", contentType))
	}
	fallbackExt, ok := allowedTypes[strings.ToLower(mediaType)]
	if !ok {
		return "", invalidUpload(fmt.Errorf("unsupported content type %q", mediaType))
	}
	if size > s.MaxBytes {
		return "", tooLarge(size, s.MaxBytes)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, known := ContentTypes[ext]; !known {
		ext = fallbackExt
	}
	return ext, nil
}

func (s *Store) write(originalName, ext string, src io.Reader) (*Saved, error) {
	filename := uuid.NewString() + ext
	path := filepath.Join(s.Dir, filename)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	// one extra byte detects clients that lied about the size
	n, err := io.Copy(dst, io.LimitReader(src, s.MaxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if n > s.MaxBytes {
		os.Remove(path)
		return nil, tooLarge(n, s.MaxBytes)
	}
	if n == 0 {
		os.Remove(path)
		return nil, invalidUpload(errors.New("file is empty"))
	}

	return &Saved{
		OriginalName: filepath.Base(originalName),
		Filename:     filename,
		Path:         path,
		Size:         n,
	}, nil
}

// Remove deletes a stored file by its base name. Missing files are not an error.
func (s *Store) Remove(filename string) error {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// Resolve returns the on-disk path of a stored file name
func (s *Store) Resolve(filename string) string {
	return filepath.Join(s.Dir, filepath.Base(filename))
}

func invalidUpload(cause error) error {
	return domain.Wrap(cause, domain.ErrInvalidUpload.Kind, "%s", domain.ErrInvalidUpload.Message)
}

func tooLarge(size, limit int64) error {
	return domain.Wrap(fmt.Errorf("%d bytes, limit %d", size, limit),
		domain.ErrUploadTooLarge.Kind, "%s", domain.ErrUploadTooLarge.Message)
}
