package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

type inner struct {
	Title string `json:"title" validate:"required,max=5"`
}

type outer struct {
	Token string `json:"token"`
	Inner inner  `json:"story"`
	Kind  string `json:"kind,omitempty" validate:"omitempty,oneof=a b"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		in       outer
		wantCode string
		wantMsg  string
	}{
		{"正常", outer{Inner: inner{Title: "ok"}}, "", ""},
		{"必須欠落はJSON名で報告", outer{}, model.ErrCodeMissingField, "title"},
		{"最大長超過", outer{Inner: inner{Title: "too long"}}, model.ErrCodeInvalidRequest, "5"},
		{"その他のタグ", outer{Inner: inner{Title: "ok"}, Kind: "z"}, model.ErrCodeInvalidRequest, "kind"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Validate() error = %v, want *model.APIError", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if !strings.Contains(apiErr.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want to contain %q", apiErr.Message, tt.wantMsg)
			}
			if !model.IsValidationError(err) {
				t.Errorf("IsValidationError(%v) = false, want true", err)
			}
		})
	}
}
