// Package media validates local video files and carries their metadata
// through the rest of the pipeline.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound reports that the path does not exist or is not a regular file.
	ErrNotFound = errors.New("media: file not found")
	// ErrUnsupported reports a file extension outside the supported set.
	ErrUnsupported = errors.New("media: unsupported format")
)

// mimeTypes maps the supported container extensions to the MIME type
// advertised to renderers. Extensions outside this table are rejected
// rather than served with a guessed type.
var mimeTypes = map[string]string{
	"mp4":  "video/mp4",
	"mkv":  "video/x-matroska",
	"avi":  "video/x-msvideo",
	"webm": "video/webm",
}

// File is a validated local video file.
type File struct {
	Path string
	Name string
	Ext  string
	MIME string
	Size int64
}

// Probe validates path and returns its metadata. The returned Path is
// absolute, so later opens do not depend on the working directory. The
// extension check is case-insensitive. Directories and missing paths return
// ErrNotFound; unknown extensions return ErrUnsupported.
func Probe(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, abs)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(abs), "."))
	mime, ok := mimeTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: .%s", ErrUnsupported, ext)
	}

	return &File{
		Path: abs,
		Name: filepath.Base(abs),
		Ext:  ext,
		MIME: mime,
		Size: info.Size(),
	}, nil
}

// SupportedExtensions lists the accepted container extensions, lowercase,
// without the leading dot.
func SupportedExtensions() []string {
	return []string{"avi", "mkv", "mp4", "webm"}
}

// IsSupported reports whether the path carries a supported video extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	_, ok := mimeTypes[ext]
	return ok
}
