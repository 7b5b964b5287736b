package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	s, err := NewDocumentStore(filepath.Join(t.TempDir(), "docs"))
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("X", 3600)) }
	return s
}

func TestNewDocumentStore(t *testing.T) {
	_, err := NewDocumentStore("  ")
	require.Error(t, err)

	root := filepath.Join(t.TempDir(), "a", "b")
	s, err := NewDocumentStore(root)
	require.NoError(t, err)
	require.Equal(t, root, s.Root())
	info, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"My Doc/Name":         "My-Doc-Name",
		"  spaced   out  ":    "spaced-out",
		`a<b>c:d"e\f|g?h*i`:   "a-b-c-d-e-f-g-h-i",
		"tabs\tand\nnewlines": "tabs-and-newlines",
		"--trim--":            "trim",
		"..hidden":            "hidden",
		"../../etc/passwd":    "etc-passwd",
		"ünïcode ok":          "ünïcode-ok",
	}
	for in, want := range cases {
		got, err := SanitizeName(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "   ", "///", "..", "-.-"} {
		_, err := SanitizeName(in)
		require.ErrorIs(t, err, ErrInvalidName, in)
	}
}

func TestAllowedImageExtension(t *testing.T) {
	for _, ext := range []string{".png", "jpg", ".JPEG", ".gif", "WEBP"} {
		require.True(t, AllowedImageExtension(ext), ext)
	}
	for _, ext := range []string{"", ".svg", ".exe", ".png.exe"} {
		require.False(t, AllowedImageExtension(ext), ext)
	}
}

func TestSaveImage(t *testing.T) {
	s := newTestStore(t)
	folder := s.ResolveFolder("post")

	name, err := s.SaveImage(folder, []byte("data"), ".PNG")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".png"))
	require.Len(t, strings.TrimSuffix(name, ".png"), 36)

	data, err := os.ReadFile(filepath.Join(folder, name))
	require.NoError(t, err)
	require.Equal(t, []byte("data"), data)

	other, err := s.SaveImage(folder, []byte("data"), "png")
	require.NoError(t, err)
	require.NotEqual(t, name, other)
}

func TestSaveImage_RejectsExtension(t *testing.T) {
	s := newTestStore(t)
	folder := s.ResolveFolder("post")

	_, err := s.SaveImage(folder, []byte("x"), ".sh")
	require.ErrorIs(t, err, ErrExtensionNotAllowed)
	_, statErr := os.Stat(folder)
	require.True(t, os.IsNotExist(statErr))
}

func TestSaveDocument(t *testing.T) {
	s := newTestStore(t)
	folder := s.ResolveFolder("post")

	path, err := s.SaveDocument(folder, "Hello: World", "# Heading\n\nBody")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(folder, "index.md"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := string(raw)
	require.True(t, strings.HasPrefix(doc, "---\n"))

	parts := strings.SplitN(doc, "---\n", 3)
	require.Len(t, parts, 3)
	var meta frontmatter
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &meta))
	require.Equal(t, frontmatter{Title: "Hello: World", Date: "2024-05-01T11:30:00Z"}, meta)
	require.Equal(t, "\n# Heading\n\nBody", parts[2])
}

func TestSaveDocument_Overwrites(t *testing.T) {
	s := newTestStore(t)
	folder := s.ResolveFolder("post")

	_, err := s.SaveDocument(folder, "v1", "first")
	require.NoError(t, err)
	path, err := s.SaveDocument(folder, "v2", "second")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "second")
	require.NotContains(t, string(raw), "first")
}

func TestFigureMarkup(t *testing.T) {
	require.Equal(t,
		"<figure>\n  <img src=\"abc.png\" alt=\"Caption\">\n  <figcaption>Caption</figcaption>\n</figure>",
		FigureMarkup("abc.png"))
}
