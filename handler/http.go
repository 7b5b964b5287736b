package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"writing-assistant/internal/usecase"
)

// HTTPOptions configures the net/http front end.
type HTTPOptions struct {
	StaticDir    string
	MaxBodyBytes int64
	Logger       *zap.Logger
}

// NewHTTPHandler mounts the API under /api/ and serves the editor page and its
// script from StaticDir. Nothing else in StaticDir is exposed.
func NewHTTPHandler(h *Handler, opts HTTPOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 16 << 20
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", &apiAdapter{handler: h, maxBodyBytes: maxBody, log: log})
	mux.HandleFunc("GET /{$}", staticFile(opts.StaticDir, "index.html"))
	mux.HandleFunc("GET /app.js", staticFile(opts.StaticDir, "app.js"))
	return mux
}

func staticFile(dir, name string) http.HandlerFunc {
	path := filepath.Join(dir, name)
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, path)
	}
}

type apiAdapter struct {
	handler      *Handler
	maxBodyBytes int64
	log          *zap.Logger
}

func (a *apiAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: "Request body too large", Message: err.Error(), Code: string(usecase.ErrorInvalidInput),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Invalid request body", Message: err.Error(), Code: string(usecase.ErrorInvalidInput),
		})
		return
	}

	resp, err := a.handler.Handle(r.Context(), toProxyRequest(r, body))
	if err != nil {
		a.log.Error("handler failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Internal server error", Message: "Internal server error", Code: string(usecase.ErrorInternal),
		})
		return
	}
	writeProxyResponse(w, resp, a.log)
}

// toProxyRequest mirrors what API Gateway would deliver for r. Non-UTF-8
// bodies (binary uploads) are base64 encoded.
func toProxyRequest(r *http.Request, body []byte) events.APIGatewayProxyRequest {
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	req := events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		QueryStringParameters: query,
	}
	if utf8.Valid(body) {
		req.Body = string(body)
	} else {
		req.Body = base64.StdEncoding.EncodeToString(body)
		req.IsBase64Encoded = true
	}
	return req
}

func writeProxyResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse, log *zap.Logger) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	for k, values := range resp.MultiValueHeaders {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			log.Error("decode response body", zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = decoded
	}

	w.WriteHeader(resp.StatusCode)
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			log.Debug("write response", zap.Error(err))
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
