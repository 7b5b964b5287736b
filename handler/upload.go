package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"writing-assistant/internal/domain"
)

const (
	uploadNameField  = "name"
	uploadFilesField = "files"
)

// parseUpload reads the document name and image files from a multipart body.
func parseUpload(req events.APIGatewayProxyRequest, maxMemory int64) (string, []domain.ImageFile, error) {
	mediaType, params, err := mime.ParseMediaType(headerValue(req.Headers, "Content-Type"))
	if err != nil {
		return "", nil, fmt.Errorf("parse content type: %w", err)
	}
	if mediaType != "multipart/form-data" {
		return "", nil, fmt.Errorf("expected multipart/form-data, got %s", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", nil, errors.New("multipart boundary is missing")
	}

	body, err := requestBody(req)
	if err != nil {
		return "", nil, err
	}
	form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(maxMemory)
	if err != nil {
		return "", nil, fmt.Errorf("read multipart form: %w", err)
	}
	defer func() { _ = form.RemoveAll() }()

	var name string
	if values := form.Value[uploadNameField]; len(values) > 0 {
		name = values[0]
	}

	files := make([]domain.ImageFile, 0, len(form.File[uploadFilesField]))
	for _, fh := range form.File[uploadFilesField] {
		if strings.TrimSpace(fh.Filename) == "" {
			continue
		}
		data, err := readFormFile(fh)
		if err != nil {
			return "", nil, err
		}
		files = append(files, domain.ImageFile{Filename: fh.Filename, Data: data})
	}
	return name, files, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}
