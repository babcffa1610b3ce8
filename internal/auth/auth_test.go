package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
			return
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "refresh-1" {
			t.Errorf("refresh_token = %q, want refresh-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access-2","refresh_token":"refresh-2","token_type":"Bearer","expires_in":3600,"user_id":"u-42"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenSource_ValidTokenNotRefreshed(t *testing.T) {
	calls := 0
	srv := tokenServer(t, &calls)
	cfg := NewOAuthConfig(Config{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL})

	tok := &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: time.Now().Add(time.Hour)}
	ts := NewTokenSource(cfg, tok, nil)

	got, err := ts.Token()
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q, want access-1", got.AccessToken)
	}
	if calls != 0 {
		t.Errorf("token endpoint called %d times, want 0", calls)
	}
}

func TestTokenSource_RefreshesWithinBuffer(t *testing.T) {
	calls := 0
	srv := tokenServer(t, &calls)
	cfg := NewOAuthConfig(Config{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL})

	// Expires in 30s, inside the refresh buffer
	tok := &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: time.Now().Add(30 * time.Second)}

	var persisted *oauth2.Token
	ts := NewTokenSource(cfg, tok, func(ctx context.Context, t *oauth2.Token) error {
		persisted = t
		return nil
	})
	if !ts.IsExpired() {
		t.Error("IsExpired = false, want true")
	}

	got, err := ts.Token()
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "access-2" || got.RefreshToken != "refresh-2" {
		t.Errorf("got %q/%q, want access-2/refresh-2", got.AccessToken, got.RefreshToken)
	}
	if persisted == nil || persisted.AccessToken != "access-2" {
		t.Errorf("refreshed token not persisted: %+v", persisted)
	}
	if ExtractUserID(got) != "u-42" {
		t.Errorf("ExtractUserID = %q, want u-42", ExtractUserID(got))
	}
	if ts.CurrentToken() != got {
		t.Error("CurrentToken does not return the refreshed token")
	}
}

func TestTokenSource_PersistFailure(t *testing.T) {
	calls := 0
	srv := tokenServer(t, &calls)
	cfg := NewOAuthConfig(Config{TokenURL: srv.URL})

	tok := &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: time.Now().Add(-time.Minute)}
	ts := NewTokenSource(cfg, tok, func(ctx context.Context, t *oauth2.Token) error {
		return errors.New("database is locked")
	})

	if _, err := ts.Token(); err == nil {
		t.Fatal("expected error when persisting fails")
	}
	if ts.CurrentToken().AccessToken != "access-1" {
		t.Error("token replaced despite persistence failure")
	}
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    bool
	}{
		{"success", "?state=s1&code=abc", http.StatusOK, "abc", false},
		{"state mismatch", "?state=other&code=abc", http.StatusBadRequest, "", true},
		{"provider error", "?state=s1&error=access_denied", http.StatusBadRequest, "", true},
		{"missing code", "?state=s1", http.StatusBadRequest, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeChan := make(chan string, 1)
			errChan := make(chan error, 1)
			h := callbackHandler("s1", codeChan, errChan)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			select {
			case code := <-codeChan:
				if code != tt.wantCode {
					t.Errorf("code = %q, want %q", code, tt.wantCode)
				}
			default:
				if tt.wantCode != "" {
					t.Error("no code delivered")
				}
			}
			select {
			case <-errChan:
				if !tt.wantErr {
					t.Error("unexpected error delivered")
				}
			default:
				if tt.wantErr {
					t.Error("no error delivered")
				}
			}
		})
	}
}

func TestNewOAuthConfig_DefaultScopes(t *testing.T) {
	cfg := NewOAuthConfig(Config{ClientID: "id", AuthURL: "https://example.com/auth", RedirectURL: RedirectURL(9000)})
	if len(cfg.Scopes) != len(DefaultScopes) {
		t.Errorf("got %d scopes, want %d", len(cfg.Scopes), len(DefaultScopes))
	}
	if cfg.RedirectURL != "http://localhost:9000/callback" {
		t.Errorf("RedirectURL = %q", cfg.RedirectURL)
	}
}
