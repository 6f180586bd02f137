package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

func TestValidateURL_Allowed(t *testing.T) {
	g := NewURLGuard()
	urls := []string{
		"https://example.com/article",
		"http://news.ycombinator.com/item?id=1",
		"https://8.8.8.8/",
		"HTTPS://Example.COM",
	}
	for _, u := range urls {
		if err := g.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}
}

func TestValidateURL_Rejected(t *testing.T) {
	g := NewURLGuard()
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"relative", "/path/only"},
		{"no scheme", "example.com"},
		{"ftp scheme", "ftp://example.com/file"},
		{"javascript", "javascript:alert(1)"},
		{"private 10/8", "http://10.0.0.1/"},
		{"private 172.16/12", "http://172.16.5.4/"},
		{"private 192.168/16", "http://192.168.1.1/"},
		{"loopback", "http://127.0.0.1:8080/"},
		{"metadata", "http://169.254.169.254/latest/meta-data/"},
		{"zero", "http://0.0.0.0/"},
		{"ipv6 loopback", "http://[::1]/"},
		{"ipv6 unique local", "http://[fd00::1]/"},
		{"localhost", "http://localhost/admin"},
		{"localhost upper", "http://LOCALHOST/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.ValidateURL(tt.url)
			if err == nil {
				t.Fatalf("ValidateURL(%q) = nil, want error", tt.url)
			}
			if !model.IsValidationError(err) {
				t.Errorf("カテゴリ = %q, want %q", model.CategoryOf(err), model.CategoryValidation)
			}
		})
	}
}

func TestNewSafeClient_Timeout(t *testing.T) {
	client := NewURLGuard().NewSafeClient(7 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient は nil を返してはならない")
	}
	if client.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", client.Timeout)
	}
}

func TestNewSafeClient_BlocksLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewURLGuard().NewSafeClient(5 * time.Second)
	resp, err := client.Get(server.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("ループバックへのリクエストがブロックされなかった")
	}
}
