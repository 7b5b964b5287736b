package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"writing-assistant/internal/domain"
	"writing-assistant/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"

	routeProcess = "/api/process"
	routeHealth  = "/api/health"
	routeModels  = "/api/models"
	routeDocs    = "/api/documents"
	routeImages  = "/api/documents/images"
)

type ProcessUseCase interface {
	Process(ctx context.Context, in usecase.ProcessInput) (usecase.ProcessOutput, error)
	DefaultModel() string
}

type DocumentUseCase interface {
	SaveDocument(ctx context.Context, in usecase.SaveDocumentInput) (usecase.SaveDocumentOutput, error)
	UploadImages(ctx context.Context, in usecase.UploadImagesInput) (usecase.UploadImagesOutput, error)
}

type ModelCatalog interface {
	Available(model string) bool
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)
}

// Handler serves the JSON API. It speaks API Gateway proxy events so the same
// code runs behind Lambda and behind the net/http adapter.
type Handler struct {
	process        ProcessUseCase
	docs           DocumentUseCase
	models         ModelCatalog
	log            *zap.Logger
	allowedOrigin  string
	requestTimeout time.Duration
	maxUploadBytes int64
}

type Option func(*Handler)

func WithLogger(log *zap.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

func WithAllowedOrigin(origin string) Option {
	return func(h *Handler) {
		if o := strings.TrimSpace(origin); o != "" {
			h.allowedOrigin = o
		}
	}
}

// WithRequestTimeout bounds the time spent in a single use case call.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.requestTimeout = d
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

func NewHandler(process ProcessUseCase, docs DocumentUseCase, models ModelCatalog, opts ...Option) (*Handler, error) {
	if process == nil {
		return nil, errors.New("handler: process use case must not be nil")
	}
	if docs == nil {
		return nil, errors.New("handler: document use case must not be nil")
	}
	if models == nil {
		return nil, errors.New("handler: model catalog must not be nil")
	}
	h := &Handler{
		process:        process,
		docs:           docs,
		models:         models,
		log:            zap.NewNop(),
		allowedOrigin:  "*",
		maxUploadBytes: 16 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type processRequest struct {
	Text    string `json:"text"`
	Prompt  string `json:"prompt"`
	Context struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"context"`
	Attempt int    `json:"attempt"`
	Model   string `json:"model"`
}

type processMetadata struct {
	Model   string `json:"model"`
	Tokens  int    `json:"tokens"`
	Success bool   `json:"success"`
}

type processResponse struct {
	ID       string          `json:"id"`
	Original string          `json:"original"`
	Result   string          `json:"result"`
	Prompt   string          `json:"prompt"`
	Attempt  int             `json:"attempt"`
	Metadata processMetadata `json:"metadata"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Model     string `json:"model,omitempty"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

type modelsResponse struct {
	Models []domain.ModelInfo `json:"models"`
}

type saveDocumentRequest struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type saveDocumentResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type uploadedFile struct {
	Filename string `json:"filename"`
	Markup   string `json:"markup"`
}

type uploadResponse struct {
	Name  string         `json:"name"`
	Files []uploadedFile `json:"files"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Handle routes one request. It never returns a non-nil error; failures are
// encoded in the response.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := h.log.With(zap.String("correlation_id", correlationID))

	resp := h.route(ctx, log, req)
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[correlationHeader] = correlationID
	h.setCORSHeaders(resp.Headers)

	log.Info("request handled",
		zap.String("method", req.HTTPMethod),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (h *Handler) route(ctx context.Context, log *zap.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if req.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: map[string]string{}}
	}

	path := normalizePath(req.Path)
	var (
		method string
		serve  func(context.Context, *zap.Logger, events.APIGatewayProxyRequest) events.APIGatewayProxyResponse
	)
	switch path {
	case routeProcess:
		method, serve = http.MethodPost, h.handleProcess
	case routeHealth:
		method, serve = http.MethodGet, h.handleHealth
	case routeModels:
		method, serve = http.MethodGet, h.handleModels
	case routeDocs:
		method, serve = http.MethodPost, h.handleSaveDocument
	case routeImages:
		method, serve = http.MethodPost, h.handleUploadImages
	default:
		return jsonResponse(http.StatusNotFound, errorResponse{
			Error: "Not found", Message: fmt.Sprintf("no route for %s", path), Code: "NOT_FOUND",
		})
	}
	if req.HTTPMethod != method {
		return jsonResponse(http.StatusMethodNotAllowed, errorResponse{
			Error: "Method not allowed", Message: fmt.Sprintf("%s requires %s", path, method), Code: "METHOD_NOT_ALLOWED",
		})
	}

	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}
	return serve(ctx, log, req)
}

func (h *Handler) handleProcess(ctx context.Context, log *zap.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var body processRequest
	if err := decodeJSON(req, &body); err != nil {
		return invalidBody(err)
	}

	log.Info("processing request", zap.Int("text_length", len(body.Text)), zap.Int("attempt", body.Attempt))
	log.Debug("process prompt", zap.String("prompt", truncate(body.Prompt, 50)))
	out, err := h.process.Process(ctx, usecase.ProcessInput{
		Text:          body.Text,
		Prompt:        body.Prompt,
		ContextBefore: body.Context.Before,
		ContextAfter:  body.Context.After,
		Attempt:       body.Attempt,
		Model:         body.Model,
	})
	if err != nil {
		return h.failure(log, "Failed to process text", err)
	}
	log.Debug("processed text", zap.String("model", out.Model), zap.Int("tokens", out.Tokens))

	return jsonResponse(http.StatusOK, processResponse{
		ID:       out.ID,
		Original: out.Original,
		Result:   out.Result,
		Prompt:   out.Prompt,
		Attempt:  out.Attempt,
		Metadata: processMetadata{Model: out.Model, Tokens: out.Tokens, Success: true},
	})
}

func (h *Handler) handleHealth(_ context.Context, _ *zap.Logger, _ events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	model := h.process.DefaultModel()
	if !h.models.Available(model) {
		return jsonResponse(http.StatusInternalServerError, healthResponse{
			Status: "unhealthy",
			Error:  fmt.Sprintf("no provider configured for model %q", model),
		})
	}
	return jsonResponse(http.StatusOK, healthResponse{Status: "healthy", Model: model, Available: true})
}

func (h *Handler) handleModels(ctx context.Context, log *zap.Logger, _ events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	models, err := h.models.ListModels(ctx)
	if err != nil {
		log.Error("list models failed", zap.Error(err))
		return jsonResponse(http.StatusInternalServerError, errorResponse{
			Error: "Failed to list models", Message: err.Error(), Code: string(usecase.ErrorUpstream),
		})
	}
	if models == nil {
		models = []domain.ModelInfo{}
	}
	return jsonResponse(http.StatusOK, modelsResponse{Models: models})
}

func (h *Handler) handleSaveDocument(ctx context.Context, log *zap.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var body saveDocumentRequest
	if err := decodeJSON(req, &body); err != nil {
		return invalidBody(err)
	}
	out, err := h.docs.SaveDocument(ctx, usecase.SaveDocumentInput{
		Name:    body.Name,
		Title:   body.Title,
		Content: body.Content,
	})
	if err != nil {
		return h.failure(log, "Failed to save document", err)
	}
	log.Info("document saved", zap.String("name", out.Name), zap.String("path", out.Path))
	return jsonResponse(http.StatusCreated, saveDocumentResponse{Name: out.Name, Path: out.Path})
}

func (h *Handler) handleUploadImages(ctx context.Context, log *zap.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	name, files, err := parseUpload(req, h.maxUploadBytes)
	if err != nil {
		return invalidBody(err)
	}
	out, err := h.docs.UploadImages(ctx, usecase.UploadImagesInput{Name: name, Files: files})
	if err != nil {
		return h.failure(log, "Failed to upload images", err)
	}

	resp := uploadResponse{Name: out.Name, Files: make([]uploadedFile, 0, len(out.Files))}
	for _, f := range out.Files {
		resp.Files = append(resp.Files, uploadedFile{Filename: f.Filename, Markup: f.Markup})
	}
	log.Info("images uploaded", zap.String("name", out.Name), zap.Int("count", len(resp.Files)))
	return jsonResponse(http.StatusCreated, resp)
}

func (h *Handler) failure(log *zap.Logger, summary string, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		log.Error("unexpected error", zap.Error(err))
		return jsonResponse(http.StatusInternalServerError, errorResponse{
			Error: summary, Message: "Internal server error", Code: string(usecase.ErrorInternal),
		})
	}

	status := statusForCode(ucErr.Code)
	body := errorResponse{Error: summary, Message: ucErr.Message, Code: string(ucErr.Code)}
	if status < http.StatusInternalServerError && status != http.StatusTooManyRequests {
		body.Error = ucErr.Message
		log.Warn("request rejected", zap.String("code", string(ucErr.Code)), zap.String("reason", ucErr.Reason))
	} else {
		log.Error(summary, zap.String("code", string(ucErr.Code)), zap.String("reason", ucErr.Reason), zap.Error(ucErr.Err))
	}
	return jsonResponse(status, body)
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	case usecase.ErrorModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) setCORSHeaders(headers map[string]string) {
	headers["Access-Control-Allow-Origin"] = h.allowedOrigin
	headers["Access-Control-Allow-Methods"] = "GET, POST, OPTIONS"
	headers["Access-Control-Allow-Headers"] = "Content-Type, " + correlationHeader
	headers["Access-Control-Expose-Headers"] = correlationHeader
}

func invalidBody(err error) events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusBadRequest, errorResponse{
		Error: "Invalid request body", Message: err.Error(), Code: string(usecase.ErrorInvalidInput),
	})
}

func jsonResponse(status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error","message":"failed to encode response","code":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func decodeJSON(req events.APIGatewayProxyRequest, v any) error {
	body, err := requestBody(req)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode JSON body: %w", err)
	}
	return nil
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	body, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, fmt.Errorf("decode base64 body: %w", err)
	}
	return body, nil
}

// headerValue looks up a header case-insensitively.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
