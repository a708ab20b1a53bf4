// Package loader scans the corpus directory and extracts document text.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"github.com/ledongthuc/pdf"

	"github.com/kart-io/docchat/pkg/utils/textutil"
)

// Document is one loaded corpus file.
type Document struct {
	// ID is a stable identifier derived from the relative path.
	ID string
	// Name is the file name.
	Name string
	// Path is the path relative to the corpus directory.
	Path string
	// Content is the extracted plain text.
	Content string
	// SizeBytes is the raw file size.
	SizeBytes int64
	// ModTime is the file modification time.
	ModTime time.Time
}

// supportedExtensions maps file extensions to their extractors.
var supportedExtensions = map[string]func(path string) (string, error){
	".txt":      readTextFile,
	".md":       readTextFile,
	".mdx":      readTextFile,
	".markdown": readTextFile,
	".pdf":      readPDFFile,
}

// Loader loads documents from a corpus directory.
type Loader struct {
	dir string
}

// New creates a Loader rooted at dir.
func New(dir string) *Loader {
	return &Loader{dir: dir}
}

// Dir returns the corpus directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Load walks the corpus directory and returns every supported document in
// path order. Files that fail to parse are skipped with a warning so one
// corrupt file cannot block the rest of the corpus.
func (l *Loader) Load() ([]*Document, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("corpus directory %s: %w", l.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", l.dir)
	}

	var docs []*Document
	err = filepath.Walk(l.dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			// Hidden directories are not part of the corpus.
			if path != l.dir && strings.HasPrefix(fi.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(fi.Name(), ".") {
			return nil
		}

		extract, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		content, err := extract(path)
		if err != nil {
			logger.Warnw("Skipping unreadable document", "path", path, "error", err.Error())
			return nil
		}
		if strings.TrimSpace(content) == "" {
			logger.Warnw("Skipping empty document", "path", path)
			return nil
		}

		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			rel = path
		}

		docs = append(docs, &Document{
			ID:        textutil.HashString(rel),
			Name:      fi.Name(),
			Path:      rel,
			Content:   content,
			SizeBytes: fi.Size(),
			ModTime:   fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus directory: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Path < docs[j].Path
	})

	return docs, nil
}

// IsSupported reports whether a file name has a loadable extension.
func IsSupported(name string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func readTextFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func readPDFFile(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	return buf.String(), nil
}
