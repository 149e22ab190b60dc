package transport

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCookieFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write cookie file: %v", err)
	}
	return path
}

func TestNewAuth(t *testing.T) {
	tests := []struct {
		name        string
		path        func(t *testing.T) string
		wantAuthed  bool
		expectError bool
	}{
		{
			name:       "empty path is anonymous",
			path:       func(t *testing.T) string { return "" },
			wantAuthed: false,
		},
		{
			name:       "missing file is anonymous",
			path:       func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
			wantAuthed: false,
		},
		{
			name: "malformed json is anonymous",
			path: func(t *testing.T) string {
				return writeCookieFile(t, `{"not": "an array"`)
			},
			wantAuthed: false,
		},
		{
			name: "valid cookies authenticate",
			path: func(t *testing.T) string {
				return writeCookieFile(t, `[
					{"name": "substack.sid", "value": "s3cret", "domain": ".substack.com", "path": "/", "secure": true}
				]`)
			},
			wantAuthed: true,
		},
		{
			name: "cookies without domains are skipped",
			path: func(t *testing.T) string {
				return writeCookieFile(t, `[{"name": "orphan", "value": "x"}]`)
			},
			wantAuthed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := NewAuth(tt.path(t))
			if (err != nil) != tt.expectError {
				t.Fatalf("NewAuth() error = %v, expectError %v", err, tt.expectError)
			}
			if got := auth.Authenticated(); got != tt.wantAuthed {
				t.Errorf("Authenticated() = %v, want %v", got, tt.wantAuthed)
			}
		})
	}
}

func TestAuth_LeadingDotDomain(t *testing.T) {
	path := writeCookieFile(t, `[
		{"name": "substack.sid", "value": "v", "domain": ".substack.com"}
	]`)

	auth, err := NewAuth(path)
	if err != nil {
		t.Fatalf("NewAuth() error = %v", err)
	}
	if !auth.Authenticated() {
		t.Error("Authenticated() = false for leading-dot domain cookie")
	}
}

func TestAuth_NilReceiver(t *testing.T) {
	var a *Auth
	if a.Authenticated() {
		t.Error("Authenticated() on nil receiver = true, want false")
	}
}
