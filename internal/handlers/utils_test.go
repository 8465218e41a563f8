package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteFailureStatuses(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation kind", &services.Error{Kind: services.ErrValidation, Message: "bad"}, http.StatusBadRequest, "bad"},
		{"missing token", &services.Error{Kind: services.ErrMissingToken, Message: "Refresh token is required"}, http.StatusBadRequest, "Refresh token is required"},
		{"reset token", &services.Error{Kind: services.ErrInvalidOrExpiredToken, Message: "Invalid or expired reset token"}, http.StatusBadRequest, "Invalid or expired reset token"},
		{"credentials", &services.Error{Kind: services.ErrInvalidCredentials, Message: "Invalid email or password"}, http.StatusUnauthorized, "Invalid email or password"},
		{"token mismatch", &services.Error{Kind: services.ErrTokenMismatch, Message: "used"}, http.StatusUnauthorized, "used"},
		{"forbidden", &services.Error{Kind: services.ErrForbidden, Message: "no"}, http.StatusForbidden, "no"},
		{"not found", &services.Error{Kind: services.ErrNotFound, Message: "User not found"}, http.StatusNotFound, "User not found"},
		{"conflict", &services.Error{Kind: services.ErrConflict, Message: "Email Already Exists"}, http.StatusConflict, "Email Already Exists"},
		{"delivery", &services.Error{Kind: services.ErrDelivery, Message: "Error sending email. Please try again later.", Err: errors.New("smtp")}, http.StatusInternalServerError, "Error sending email. Please try again later."},
		{"bare not found", store.ErrNotFound, http.StatusNotFound, "Not Found"},
		{"request", badRequest("Invalid request body"), http.StatusBadRequest, "Invalid request body"},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			writeFailure(rec, req, testLogger, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			resp := decodeResponse(t, rec)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.message, resp.Message)
			assert.False(t, resp.Success)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestWriteFailureValidationErrors(t *testing.T) {
	err := validate.New().Struct(ChangePasswordRequest{NewPassword: "123"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	writeFailure(rec, httptest.NewRequest(http.MethodPost, "/", nil), testLogger, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Contains(t, resp.Errors, "oldPassword")
	assert.Contains(t, resp.Errors, "newPassword")
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	writeData(rec, http.StatusCreated, map[string]string{"id": "1"}, "created")

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeResponse(t, rec)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.Success)
	assert.Equal(t, "created", resp.Message)
	assert.Equal(t, map[string]any{"id": "1"}, resp.Data)
}

func TestAccessTokenSources(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, accessToken(req))

	req.Header.Set("Authorization", "bearer  abc.def ")
	assert.Equal(t, "abc.def", accessToken(req))

	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", accessToken(req))

	basic := httptest.NewRequest(http.MethodGet, "/", nil)
	basic.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, bearerToken(basic))
}

func TestDecodeJSON(t *testing.T) {
	var req LoginRequest
	rec := httptest.NewRecorder()

	empty := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	assert.NoError(t, decodeJSON(rec, empty, &req))

	broken := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var reqErr *requestError
	assert.ErrorAs(t, decodeJSON(rec, broken, &req), &reqErr)

	huge := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"identifier":"`+strings.Repeat("a", maxJSONBodyBytes)+`"}`))
	var tooLarge *http.MaxBytesError
	assert.ErrorAs(t, decodeJSON(rec, huge, &req), &tooLarge)
}

func TestCommaList(t *testing.T) {
	var req JobRequest
	require.NoError(t, json.Unmarshal([]byte(`{"requirements":"Go, SQL ,","location":["Lagos","Remote"],"salary":"1200.5","position":3}`), &req))

	assert.Equal(t, []string{"Go", "SQL"}, []string(req.Requirements))
	assert.Equal(t, []string{"Lagos", "Remote"}, []string(req.Location))

	salary, err := req.salary()
	require.NoError(t, err)
	assert.Equal(t, 1200.5, *salary)
	position, err := req.position()
	require.NoError(t, err)
	assert.Equal(t, 3, *position)

	req.Position = "2.5"
	_, err = req.position()
	assert.Error(t, err)
}

func TestFormFileLimit(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x89}, 64))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPatch, "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	cleanup, err := parseMultipart(req)
	defer cleanup()
	require.NoError(t, err)

	file, err := formFile(req, "avatar", 128)
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, "me.png", file.Name)
	assert.Len(t, file.Data, 64)

	missing, err := formFile(req, "coverImage", 128)
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = formFile(req, "avatar", 32)
	var reqErr *requestError
	assert.ErrorAs(t, err, &reqErr)

	_, err = imageFile(req, "avatar", 128)
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "avatar must be an image", reqErr.message)
}
