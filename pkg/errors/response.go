package errors

import (
	"encoding/json"
	"io"
	"net/http"
)

// errorEnvelope mirrors the error body returned by the storefront API.
// Field errors may arrive either as a flat map or as a validation detail
// list; both are collapsed into FieldErrors.
type errorEnvelope struct {
	Success bool              `json:"success"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details,omitempty"`
}

// FromResponse reads the body of a non-2xx HTTP response and translates it
// into an *APIError. Validation responses (400/422 with field detail) become
// ErrValidation with a populated FieldErrors map; everything else is
// normalized through Server. The body is fully consumed and closed.
func FromResponse(resp *http.Response) *APIError {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return Server(resp.StatusCode, "")
	}

	var envelope errorEnvelope
	if json.Unmarshal(bodyBytes, &envelope) != nil {
		return Server(resp.StatusCode, "")
	}

	fields := envelope.Errors
	if len(fields) == 0 && len(envelope.Details) > 0 {
		fields = make(map[string]string, len(envelope.Details))
		for _, d := range envelope.Details {
			fields[d.Field] = d.Message
		}
	}

	isValidationStatus := resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnprocessableEntity
	if isValidationStatus && len(fields) > 0 {
		apiErr := Validation(fields)
		apiErr.Status = resp.StatusCode
		apiErr.Code = envelope.Code
		if envelope.Message != "" {
			apiErr.Message = envelope.Message
		}
		return apiErr
	}

	apiErr := Server(resp.StatusCode, envelope.Message)
	apiErr.Code = envelope.Code
	return apiErr
}
