package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colehouse/taskline/internal/domain"
	"github.com/colehouse/taskline/internal/service"
	"github.com/colehouse/taskline/internal/service/auth"
	"github.com/colehouse/taskline/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"wrong token type", auth.ErrWrongTokenType, http.StatusUnauthorized},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"task not found", service.ErrTaskNotFound, http.StatusNotFound},
		{"store task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound},
		{"email exists", store.ErrEmailExists, http.StatusConflict},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"invalid ID", domain.ErrInvalidID, http.StatusBadRequest},
		{"invalid period", domain.ErrInvalidPeriod, http.StatusBadRequest},
		{"unknown", errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestMapErrorToStatusCodeWrapped(t *testing.T) {
	wrapped := service.NewTaskServiceError("get_task", "failed", store.ErrTaskNotFound)
	assert.Equal(t, http.StatusNotFound, MapErrorToStatusCode(wrapped))
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, "An unexpected error occurred"},
		{"task not found", service.ErrTaskNotFound, MsgTaskNotFound},
		{"expired token", auth.ErrExpiredToken, "Invalid token"},
		{"email exists", store.ErrEmailExists, "Email already exists"},
		{"validation", domain.ErrValidation, "Validation failed"},
		{
			"field validation",
			domain.NewValidationError("email", "must be a valid format", nil),
			"Invalid email: must be a valid format",
		},
		{"unknown", errors.New("pq: relation missing"), "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		defaultMsg      string
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "known error ignores default message",
			err:             service.ErrTaskNotFound,
			defaultMsg:      "Custom default",
			expectedStatus:  http.StatusNotFound,
			expectedMessage: MsgTaskNotFound,
		},
		{
			name:            "unknown error uses default message",
			err:             errors.New("database connection error"),
			defaultMsg:      "Friendly server error message",
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Friendly server error message",
		},
		{
			name:            "unknown error without default",
			err:             errors.New("database connection error"),
			defaultMsg:      "",
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			HandleAPIError(rr, req, tc.err, tc.defaultMsg)

			assert.Equal(t, tc.expectedStatus, rr.Code)

			var response map[string]interface{}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
			assert.Equal(t, tc.expectedMessage, response["error"])
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	err := errors.New(
		"Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag",
	)
	assert.Equal(t, "Invalid Email: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else")))
}
