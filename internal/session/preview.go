package session

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"audiosub/internal/audio"
)

// Preview is a transient playback handle for the active source.
type Preview interface {
	Path() string
	Release() error
}

// PreviewStore creates previews for newly selected sources.
type PreviewStore interface {
	Create(source audio.Source) (Preview, error)
}

// TempPreviewStore writes previews as temp files under a staging directory.
type TempPreviewStore struct {
	dir string
}

// NewTempPreviewStore returns a store rooted at dir.
func NewTempPreviewStore(dir string) *TempPreviewStore {
	return &TempPreviewStore{dir: dir}
}

// Create writes the source payload to a new temp file.
func (s *TempPreviewStore) Create(source audio.Source) (Preview, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview directory: %w", err)
	}
	file, err := os.CreateTemp(s.dir, "preview-*"+previewExtension(source))
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	if _, err := file.Write(source.Bytes()); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return nil, fmt.Errorf("write preview: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return nil, fmt.Errorf("close preview: %w", err)
	}
	return &tempPreview{path: file.Name()}, nil
}

func previewExtension(source audio.Source) string {
	if ext := filepath.Ext(source.DisplayName()); ext != "" && !strings.ContainsAny(ext, `/\`) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(source.MimeType()); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

type tempPreview struct {
	path string
	once sync.Once
	err  error
}

func (p *tempPreview) Path() string { return p.path }

// Release removes the preview file. Repeated calls are no-ops.
func (p *tempPreview) Release() error {
	p.once.Do(func() {
		if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
			p.err = fmt.Errorf("remove preview: %w", err)
		}
	})
	return p.err
}
