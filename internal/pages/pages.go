// Package pages loads ordered page-image sequences from disk. Scans
// arrive as one image file per page; lexical file-name order is the
// page order (scanner output is zero-padded), and that order must be
// preserved all the way into the model request.
package pages

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pavelanni/gradescan/internal/model"
)

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// LoadDir reads every page image in dir, in lexical file-name order.
// Non-image files are skipped. An empty or image-free directory yields
// an empty sequence, not an error; a grading run over zero pages is a
// valid no-op.
func LoadDir(dir string) ([]model.Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read page directory %s: %w", dir, err)
	}

	var result []model.Page
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if _, ok := imageExtensions[ext]; !ok {
			continue
		}
		p, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// LoadFile reads a single page image.
func LoadFile(path string) (model.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Page{}, fmt.Errorf("read page %s: %w", path, err)
	}
	return model.Page{
		Data: data,
		MIME: SniffMIME(path, data),
	}, nil
}

// SniffMIME picks the image MIME type: the file extension when it is a
// known image type, content sniffing otherwise.
func SniffMIME(name string, data []byte) string {
	if mime, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "application/octet-stream"
}
