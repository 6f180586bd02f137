package model

import (
	"errors"
	"testing"
)

func TestStory_Hostname(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "https", url: "https://example.com/article", want: "example.com"},
		{name: "サブドメインとポート", url: "http://news.example.org:8080/a?b=c", want: "news.example.org"},
		{name: "IPv6", url: "http://[::1]:3000/", want: "::1"},
		{name: "大文字スキーム", url: "HTTPS://Example.com", want: "Example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Story{ID: "s1", URL: tt.url}
			got, err := s.Hostname()
			if err != nil {
				t.Fatalf("Hostname() がエラーを返した: %v", err)
			}
			if got != tt.want {
				t.Errorf("Hostname() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStory_Hostname_MalformedURL_ReturnsValidationError(t *testing.T) {
	urls := []string{
		"",
		"   ",
		"not a url",
		"/relative/path",
		"example.com/no-scheme",
		"http://",
		"http://%zz",
		"mailto:someone@example.com",
	}

	for _, raw := range urls {
		t.Run(raw, func(t *testing.T) {
			s := Story{ID: "s1", URL: raw}
			host, err := s.Hostname()
			if err == nil {
				t.Fatalf("Hostname(%q) = %q, want error", raw, host)
			}
			if !IsValidationError(err) {
				t.Errorf("category = %q, want %q", CategoryOf(err), CategoryValidation)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Code != ErrCodeInvalidURL {
				t.Errorf("error = %v, want code %s", err, ErrCodeInvalidURL)
			}
		})
	}
}

func TestNewStory_Validate(t *testing.T) {
	tests := []struct {
		name     string
		input    NewStory
		wantCode string
	}{
		{
			name:  "正常",
			input: NewStory{Author: "Ada", Title: "Notes", URL: "https://example.com"},
		},
		{
			name:     "author欠落",
			input:    NewStory{Title: "Notes", URL: "https://example.com"},
			wantCode: ErrCodeMissingField,
		},
		{
			name:     "title空白のみ",
			input:    NewStory{Author: "Ada", Title: "  ", URL: "https://example.com"},
			wantCode: ErrCodeMissingField,
		},
		{
			name:     "url欠落",
			input:    NewStory{Author: "Ada", Title: "Notes"},
			wantCode: ErrCodeMissingField,
		},
		{
			name:     "相対URL",
			input:    NewStory{Author: "Ada", Title: "Notes", URL: "/notes"},
			wantCode: ErrCodeInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Validate() = %v, want *APIError", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", apiErr.Code, tt.wantCode)
			}
			if apiErr.Category != CategoryValidation {
				t.Errorf("category = %s, want %s", apiErr.Category, CategoryValidation)
			}
		})
	}
}
