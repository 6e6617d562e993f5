package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrCancelled, ErrTimeout, ErrNetwork, ErrSessionExpired,
		ErrLoggedOut, ErrValidation, ErrServer,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- APIError behavior ---

func TestAPIError_ErrorString_WithStatus(t *testing.T) {
	apiErr := &APIError{Status: 404, Message: "product not found"}
	assert.Equal(t, "api error (status 404): product not found", apiErr.Error())
}

func TestAPIError_ErrorString_WithoutStatus(t *testing.T) {
	apiErr := &APIError{Message: "connection refused"}
	assert.Equal(t, "connection refused", apiErr.Error())
}

func TestAPIError_Unwrap(t *testing.T) {
	apiErr := Timeout()
	assert.True(t, errors.Is(apiErr, ErrTimeout))
	assert.False(t, errors.Is(apiErr, ErrNetwork))
}

// --- Constructors ---

func TestCancelled_DefaultReason(t *testing.T) {
	err := Cancelled("")
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.NotEmpty(t, err.Message)
}

func TestCancelled_CustomReason(t *testing.T) {
	err := Cancelled("user logged out")
	assert.Equal(t, "user logged out", err.Message)
}

func TestNetwork_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Network(cause)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.True(t, errors.Is(err, cause))
}

func TestSessionExpired(t *testing.T) {
	err := SessionExpired()
	assert.Equal(t, http.StatusUnauthorized, err.Status)
	assert.True(t, errors.Is(err, ErrSessionExpired))
}

func TestLoggedOut(t *testing.T) {
	err := LoggedOut()
	assert.Equal(t, http.StatusUnauthorized, err.Status)
	assert.True(t, errors.Is(err, ErrLoggedOut))
}

func TestValidation_CarriesFieldErrors(t *testing.T) {
	err := Validation(map[string]string{"email": "is invalid"})
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "is invalid", err.FieldErrors["email"])
}

func TestServer_NormalizesMessageByStatus(t *testing.T) {
	tests := []struct {
		status  int
		message string
		want    string
	}{
		{http.StatusNotFound, "", "The requested resource was not found."},
		{http.StatusConflict, "", "The resource was modified concurrently. Please retry."},
		{http.StatusInternalServerError, "", "The server encountered an error. Please try again later."},
		{http.StatusBadGateway, "", "The server encountered an error. Please try again later."},
		{http.StatusTeapot, "", "Something went wrong."},
		{http.StatusNotFound, "no such product", "no such product"},
	}

	for _, tt := range tests {
		err := Server(tt.status, tt.message)
		assert.Equal(t, tt.want, err.Message, "status %d", tt.status)
		assert.Equal(t, tt.status, err.Status)
	}
}

// --- Classify ---

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassify_ContextCanceled(t *testing.T) {
	err := Classify(fmt.Errorf("request aborted: %w", context.Canceled))
	assert.True(t, errors.Is(err, ErrCancelled))
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	err := Classify(context.DeadlineExceeded)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestClassify_URLErrorTimeout(t *testing.T) {
	urlErr := &url.Error{
		Op:  "Get",
		URL: "http://api.local/cart",
		Err: &timeoutNetError{},
	}
	err := Classify(urlErr)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestClassify_URLErrorConnection(t *testing.T) {
	urlErr := &url.Error{
		Op:  "Post",
		URL: "http://api.local/cart",
		Err: fmt.Errorf("connection refused"),
	}
	err := Classify(urlErr)
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestClassify_PassesAPIErrorThrough(t *testing.T) {
	original := Server(http.StatusUnauthorized, "")
	assert.Same(t, error(original), Classify(original))
}

func TestClassify_UnknownError(t *testing.T) {
	err := Classify(fmt.Errorf("something odd"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.False(t, errors.Is(err, ErrNetwork))
	assert.False(t, errors.Is(err, ErrTimeout))
}

// timeoutNetError implements net.Error with Timeout() == true.
type timeoutNetError struct{}

func (*timeoutNetError) Error() string   { return "i/o timeout" }
func (*timeoutNetError) Timeout() bool   { return true }
func (*timeoutNetError) Temporary() bool { return true }

var _ net.Error = (*timeoutNetError)(nil)

// --- IsAuthFailure ---

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, IsAuthFailure(Server(http.StatusUnauthorized, "")))
	assert.False(t, IsAuthFailure(Server(http.StatusForbidden, "")))
	assert.False(t, IsAuthFailure(Timeout()))
	assert.False(t, IsAuthFailure(Network(fmt.Errorf("refused"))))
	assert.False(t, IsAuthFailure(fmt.Errorf("plain error")))
}

// --- FromResponse ---

func newResponse(status int, body string) *http.Response {
	rec := httptest.NewRecorder()
	rec.WriteHeader(status)
	_, _ = rec.WriteString(body)
	resp := rec.Result()
	resp.Body = io.NopCloser(strings.NewReader(body))
	return resp
}

func TestFromResponse_StructuredMessage(t *testing.T) {
	resp := newResponse(http.StatusNotFound,
		`{"success":false,"message":"Product not found"}`)
	err := FromResponse(resp)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Equal(t, "Product not found", err.Message)
}

func TestFromResponse_ValidationFieldMap(t *testing.T) {
	resp := newResponse(http.StatusBadRequest,
		`{"success":false,"message":"Validation failed","errors":{"email":"is required"}}`)
	err := FromResponse(resp)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "is required", err.FieldErrors["email"])
	assert.Equal(t, "Validation failed", err.Message)
}

func TestFromResponse_ValidationDetailList(t *testing.T) {
	resp := newResponse(http.StatusUnprocessableEntity,
		`{"success":false,"details":[{"field":"password","message":"too short"}]}`)
	err := FromResponse(resp)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "too short", err.FieldErrors["password"])
}

func TestFromResponse_UnstructuredBody(t *testing.T) {
	resp := newResponse(http.StatusBadGateway, `<html>bad gateway</html>`)
	err := FromResponse(resp)
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Equal(t, "The server encountered an error. Please try again later.", err.Message)
}

func TestFromResponse_400WithoutFieldErrors_IsNotValidation(t *testing.T) {
	resp := newResponse(http.StatusBadRequest,
		`{"success":false,"message":"Malformed body"}`)
	err := FromResponse(resp)
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "Malformed body", err.Message)
}
