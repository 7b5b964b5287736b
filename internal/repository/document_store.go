package repository

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	documentFile = "index.md"
	dirPerm      = 0o755
	filePerm     = 0o644
)

var (
	ErrInvalidName         = errors.New("repository: document name is empty after sanitization")
	ErrExtensionNotAllowed = errors.New("repository: file extension not allowed")

	disallowedChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	hyphenRun       = regexp.MustCompile(`-{2,}`)

	allowedImageExtensions = map[string]bool{
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".gif":  true,
		".webp": true,
	}
)

// frontmatter is the metadata header written above every saved document.
type frontmatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

// DocumentStore writes markdown documents and their images under a root directory.
// Each document lives in its own folder: <root>/<name>/index.md.
type DocumentStore struct {
	root string
	now  func() time.Time
}

// NewDocumentStore creates the root directory if needed.
func NewDocumentStore(root string) (*DocumentStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("repository: document root must not be empty")
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("repository: create document root: %w", err)
	}
	return &DocumentStore{root: root, now: time.Now}, nil
}

func (s *DocumentStore) Root() string {
	return s.root
}

// SanitizeName makes raw usable as a single folder name.
func SanitizeName(raw string) (string, error) {
	name := disallowedChars.ReplaceAllString(raw, "-")
	name = whitespaceRun.ReplaceAllString(name, "-")
	name = hyphenRun.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// ResolveFolder maps an already sanitized name to its folder under the root.
func (s *DocumentStore) ResolveFolder(name string) string {
	return filepath.Join(s.root, name)
}

// AllowedImageExtension reports whether ext (with or without a leading dot) may be saved.
func AllowedImageExtension(ext string) bool {
	return allowedImageExtensions[normalizeExtension(ext)]
}

// SaveImage writes data under a fresh <uuid><ext> filename and returns that filename.
func (s *DocumentStore) SaveImage(folder string, data []byte, ext string) (string, error) {
	ext = normalizeExtension(ext)
	if !allowedImageExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext)
	}
	if err := os.MkdirAll(folder, dirPerm); err != nil {
		return "", fmt.Errorf("repository: SaveImage create folder: %w", err)
	}

	filename := uuid.NewString() + ext
	f, err := os.OpenFile(filepath.Join(folder, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return "", fmt.Errorf("repository: SaveImage open: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("repository: SaveImage write: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("repository: SaveImage close: %w", err)
	}
	return filename, nil
}

// SaveDocument writes index.md with a title/date frontmatter header and returns its path.
// An existing index.md in the folder is replaced.
func (s *DocumentStore) SaveDocument(folder, title, content string) (string, error) {
	if err := os.MkdirAll(folder, dirPerm); err != nil {
		return "", fmt.Errorf("repository: SaveDocument create folder: %w", err)
	}

	body, err := renderDocument(frontmatter{
		Title: title,
		Date:  s.now().UTC().Format(time.RFC3339),
	}, content)
	if err != nil {
		return "", fmt.Errorf("repository: SaveDocument: %w", err)
	}

	path := filepath.Join(folder, documentFile)
	if err := os.WriteFile(path, body, filePerm); err != nil {
		return "", fmt.Errorf("repository: SaveDocument write: %w", err)
	}
	return path, nil
}

// FigureMarkup returns the markup used to embed a saved image in a document.
func FigureMarkup(filename string) string {
	return fmt.Sprintf("<figure>\n  <img src=%q alt=\"Caption\">\n  <figcaption>Caption</figcaption>\n</figure>", filename)
}

func renderDocument(meta frontmatter, content string) ([]byte, error) {
	header, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(content)
	return buf.Bytes(), nil
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
