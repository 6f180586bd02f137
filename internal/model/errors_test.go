package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIError_ErrorIncludesCode(t *testing.T) {
	err := NewStoryNotFoundError("s1")
	if !strings.Contains(err.Error(), ErrCodeStoryNotFound) {
		t.Errorf("Error() = %q, want code %s", err.Error(), ErrCodeStoryNotFound)
	}
}

func TestNewTransportError_Unwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError("GET /stories", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is で原因エラーを辿れるべき")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
}

func TestCategoryPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", NewMissingFieldError("title"), CategoryValidation},
		{"auth", NewUnauthorizedError(), CategoryAuth},
		{"auth conflict", NewUsernameTakenError("ada"), CategoryAuth},
		{"not found", NewStoryNotFoundError("s1"), CategoryNotFound},
		{"transport", NewTransportError("x", nil), CategoryTransport},
		{"wrapped", fmt.Errorf("context: %w", NewForbiddenError("no")), CategoryAuth},
		{"plain", errors.New("plain"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryOf(tt.err); got != tt.want {
				t.Errorf("CategoryOf() = %q, want %q", got, tt.want)
			}
			if IsValidationError(tt.err) != (tt.want == CategoryValidation) {
				t.Error("IsValidationError の判定が不一致")
			}
			if IsAuthError(tt.err) != (tt.want == CategoryAuth) {
				t.Error("IsAuthError の判定が不一致")
			}
			if IsNotFoundError(tt.err) != (tt.want == CategoryNotFound) {
				t.Error("IsNotFoundError の判定が不一致")
			}
			if IsTransportError(tt.err) != (tt.want == CategoryTransport) {
				t.Error("IsTransportError の判定が不一致")
			}
		})
	}
}
