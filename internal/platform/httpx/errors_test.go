package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: property 3", ErrNotFound), http.StatusNotFound, CodeNotFound},
		{Validation("title is required"), http.StatusBadRequest, CodeValidation},
		{ErrForbidden, http.StatusForbidden, CodeForbidden},
		{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{ErrConflict, http.StatusConflict, CodeConflict},
		{ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
		{errors.New("pq: connection reset"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code, _ := Classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, nil, errors.New("dial tcp 10.0.0.3:5432: refused"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeInternal, env.Error.Code)
	assert.Equal(t, "internal server error", env.Error.Message)
	assert.Equal(t, http.StatusInternalServerError, env.Error.StatusCode)
}

func TestValidationMessage(t *testing.T) {
	err := Validation("price must be >= %d", 0)
	assert.Equal(t, "validation failed: price must be >= 0", err.Error())
}
