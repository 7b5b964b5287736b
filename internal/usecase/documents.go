package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"writing-assistant/internal/domain"
	"writing-assistant/internal/repository"
)

// DocumentWriter is the filesystem surface DocumentService needs.
type DocumentWriter interface {
	ResolveFolder(name string) string
	SaveImage(folder string, data []byte, ext string) (string, error)
	SaveDocument(folder, title, content string) (string, error)
}

type DocumentService struct {
	store DocumentWriter
}

type SaveDocumentInput struct {
	Name    string
	Title   string
	Content string
}

type SaveDocumentOutput struct {
	Name string
	Path string
}

type UploadImagesInput struct {
	Name  string
	Files []domain.ImageFile
}

type SavedImage struct {
	Filename string
	Markup   string
}

type UploadImagesOutput struct {
	Name  string
	Files []SavedImage
}

func NewDocumentService(store DocumentWriter) (*DocumentService, error) {
	if store == nil {
		return nil, errors.New("usecase: document store must not be nil")
	}
	return &DocumentService{store: store}, nil
}

func (s *DocumentService) SaveDocument(_ context.Context, in SaveDocumentInput) (SaveDocumentOutput, error) {
	name, err := sanitizeDocumentName(in.Name)
	if err != nil {
		return SaveDocumentOutput{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSpace(in.Name)
	}

	path, err := s.store.SaveDocument(s.store.ResolveFolder(name), title, in.Content)
	if err != nil {
		return SaveDocumentOutput{}, newError(ErrorStorage, "document_write_error", "Failed to save document", err)
	}
	return SaveDocumentOutput{Name: name, Path: path}, nil
}

// UploadImages validates every file before writing any of them.
func (s *DocumentService) UploadImages(_ context.Context, in UploadImagesInput) (UploadImagesOutput, error) {
	name, err := sanitizeDocumentName(in.Name)
	if err != nil {
		return UploadImagesOutput{}, err
	}
	if len(in.Files) == 0 {
		return UploadImagesOutput{}, newError(ErrorInvalidInput, "no_files", "No files selected", nil)
	}
	for _, f := range in.Files {
		if !repository.AllowedImageExtension(filepath.Ext(f.Filename)) {
			return UploadImagesOutput{}, newError(ErrorInvalidInput, "extension_not_allowed",
				fmt.Sprintf("File type not allowed: %q (allowed: png, jpg, jpeg, gif, webp)", f.Filename), nil)
		}
		if len(f.Data) == 0 {
			return UploadImagesOutput{}, newError(ErrorInvalidInput, "empty_file",
				fmt.Sprintf("File %q is empty", f.Filename), nil)
		}
	}

	folder := s.store.ResolveFolder(name)
	out := UploadImagesOutput{Name: name, Files: make([]SavedImage, 0, len(in.Files))}
	for _, f := range in.Files {
		filename, err := s.store.SaveImage(folder, f.Data, filepath.Ext(f.Filename))
		if err != nil {
			return UploadImagesOutput{}, newError(ErrorStorage, "image_write_error", "Failed to save image", err)
		}
		out.Files = append(out.Files, SavedImage{Filename: filename, Markup: repository.FigureMarkup(filename)})
	}
	return out, nil
}

func sanitizeDocumentName(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", newError(ErrorInvalidInput, "missing_name", "Document name is required", nil)
	}
	name, err := repository.SanitizeName(raw)
	if err != nil {
		return "", newError(ErrorInvalidInput, "invalid_name", "Document name is invalid", err)
	}
	return name, nil
}
