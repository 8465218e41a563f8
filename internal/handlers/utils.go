package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jobfinder/apiserver/internal/logging"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/storage"
	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/internal/validate"
	"github.com/jobfinder/apiserver/types"
)

const (
	maxJSONBodyBytes   = 1 << 20
	maxMultipartMemory = 32 << 20
)

type contextKey string

const contextUserKey contextKey = "user"

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok && user.ID != ""
}

// Response is the envelope of every API response.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Data       any               `json:"data"`
	Message    string            `json:"message"`
	Success    bool              `json:"success"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Response{StatusCode: status, Data: data, Message: message, Success: status < http.StatusBadRequest})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{StatusCode: status, Message: message})
}

// requestError is a malformed request detected before reaching a service.
type requestError struct {
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(message string) error {
	return &requestError{message: message}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind error) int {
	switch {
	case errors.Is(kind, services.ErrValidation),
		errors.Is(kind, services.ErrMissingToken),
		errors.Is(kind, services.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest
	case errors.Is(kind, services.ErrInvalidCredentials),
		errors.Is(kind, services.ErrUnauthenticated),
		errors.Is(kind, services.ErrUnauthorized),
		errors.Is(kind, services.ErrInvalidToken),
		errors.Is(kind, services.ErrTokenMismatch):
		return http.StatusUnauthorized
	case errors.Is(kind, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure renders err in the envelope. Server-side failures are
// logged and their details withheld from the client.
func writeFailure(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validationErr *validate.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, Response{
			StatusCode: http.StatusBadRequest,
			Message:    "Validation failed",
			Errors:     validationErr.Errors,
		})
		return
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeError(w, http.StatusBadRequest, reqErr.message)
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	var serviceErr *services.Error
	if errors.As(err, &serviceErr) {
		status := statusFor(serviceErr.Kind)
		if status >= http.StatusInternalServerError {
			logFailure(r, logger, err)
		}
		writeError(w, status, serviceErr.Message)
		return
	}

	if status := statusFor(err); status != http.StatusInternalServerError {
		writeError(w, status, http.StatusText(status))
		return
	}

	logFailure(r, logger, err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func logFailure(r *http.Request, logger *slog.Logger, err error) {
	logging.LogError(logger, "request failed", err,
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("Invalid request body")
	}
	return nil
}

// parseMultipart parses a multipart body. The caller must call the
// returned cleanup to remove temporary files.
func parseMultipart(r *http.Request) (func(), error) {
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return cleanup, badRequest("Invalid multipart form")
	}
	return cleanup, nil
}

// formFile reads the optional upload in field, at most limit bytes.
func formFile(r *http.Request, field string, limit int64) (*storage.File, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, nil
	}
	header := r.MultipartForm.File[field][0]
	file, err := header.Open()
	if err != nil {
		return nil, badRequest("Failed to read " + field)
	}
	defer file.Close()

	data, err := readFileLimited(file, limit)
	if err != nil {
		return nil, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &storage.File{
		Name:        header.Filename,
		ContentType: strings.TrimSpace(contentType),
		Data:        data,
	}, nil
}

// imageFile reads the optional upload in field and rejects anything that
// is not an image.
func imageFile(r *http.Request, field string, limit int64) (*storage.File, error) {
	file, err := formFile(r, field, limit)
	if err != nil || file == nil {
		return file, err
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return nil, badRequest(field + " must be an image")
	}
	return file, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, badRequest("Failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, badRequest("Uploaded file too large")
	}
	return data, nil
}
