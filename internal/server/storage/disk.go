package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// filesKey is the echo context key holding the files written by Middleware.
const filesKey = "uploaded_files"

// File describes one stored upload.
type File struct {
	FieldName    string `json:"fieldname"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Destination  string `json:"destination"`
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
}

// DiskStorage writes multipart file parts to the local filesystem.
//
// Default naming is "<epochMillis>-<originalName>". Two uploads of the same
// name within one millisecond get the same name and the later write wins;
// WithRandomSuffix narrows that window.
type DiskStorage struct {
	destination func(*multipart.FileHeader) string
	filename    func(*multipart.FileHeader) string
	now         func() time.Time
	suffix      func() string
}

// Option configures a DiskStorage.
type Option func(*DiskStorage)

// WithDestination overrides the directory chosen for each file.
func WithDestination(fn func(*multipart.FileHeader) string) Option {
	return func(s *DiskStorage) { s.destination = fn }
}

// WithFilename overrides the generated name for each file.
func WithFilename(fn func(*multipart.FileHeader) string) Option {
	return func(s *DiskStorage) { s.filename = fn }
}

// WithClock sets the time source used by the default filename.
func WithClock(now func() time.Time) Option {
	return func(s *DiskStorage) { s.now = now }
}

// WithRandomSuffix inserts eight random hex characters between the
// timestamp and the original name.
func WithRandomSuffix() Option {
	return func(s *DiskStorage) {
		s.suffix = func() string { return uuid.NewString()[:8] }
	}
}

// NewDiskStorage stores files under dir. The directory is never created.
func NewDiskStorage(dir string, opts ...Option) *DiskStorage {
	s := &DiskStorage{now: time.Now}
	s.destination = func(*multipart.FileHeader) string { return dir }
	s.filename = s.defaultFilename
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DiskStorage) defaultFilename(fh *multipart.FileHeader) string {
	ms := s.now().UnixMilli()
	if s.suffix != nil {
		return fmt.Sprintf("%d-%s-%s", ms, s.suffix(), fh.Filename)
	}
	return fmt.Sprintf("%d-%s", ms, fh.Filename)
}

// Save copies one file part to disk.
func (s *DiskStorage) Save(field string, fh *multipart.FileHeader) (*File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", fh.Filename, err)
	}
	defer src.Close()

	dir := s.destination(fh)
	name := filepath.Base(s.filename(fh))
	filePath := filepath.Join(dir, name)

	dst, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to close file %s: %w", filePath, err)
	}

	return &File{
		FieldName:    field,
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
		Destination:  dir,
		Filename:     name,
		Path:         filePath,
		Size:         n,
	}, nil
}

// Middleware parses the multipart body, stores every file part of every
// field, and exposes the result to the next handler through Files.
// Fields are stored in name order, parts within a field in body order.
// If any part fails, the files already written for the request are removed.
func (s *DiskStorage) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			form, err := c.MultipartForm()
			if err != nil {
				return fmt.Errorf("failed to parse multipart form: %w", err)
			}

			var files []*File
			for _, field := range slices.Sorted(maps.Keys(form.File)) {
				for _, fh := range form.File[field] {
					f, err := s.Save(field, fh)
					if err != nil {
						removeAll(files)
						return err
					}
					files = append(files, f)
				}
			}

			c.Set(filesKey, files)
			return next(c)
		}
	}
}

func removeAll(files []*File) {
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove partial upload", "path", f.Path, "error", err)
		}
	}
}

// Files returns what Middleware stored for this request.
func Files(c echo.Context) []*File {
	files, _ := c.Get(filesKey).([]*File)
	return files
}
