package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// ErrorBody describes a failed request.
type ErrorBody struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	StatusCode int    `json:"statusCode"`
}

// Envelope is the uniform response wrapper.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Paginated wraps a page of items together with its pagination metadata.
type Paginated struct {
	Items      any `json:"items"`
	Pagination any `json:"pagination"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a successful envelope.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Page sends a successful paginated envelope.
func Page(w http.ResponseWriter, items any, pagination any) {
	OK(w, http.StatusOK, Paginated{Items: items, Pagination: pagination})
}

// Fail sends an error envelope.
func Fail(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, Envelope{
		Success: false,
		Error:   &ErrorBody{Message: message, Code: code, StatusCode: status},
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return Validation("request body is empty")
		}
		return Validation("malformed JSON body")
	}
	return nil
}

// RateLimited is an httprate limit handler emitting the error envelope.
func RateLimited(w http.ResponseWriter, _ *http.Request) {
	Fail(w, http.StatusTooManyRequests, CodeRateLimited, ErrRateLimited.Error())
}
