package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// expiryBuffer refreshes tokens this long before they expire
const expiryBuffer = 60 * time.Second

// PersistFunc stores a freshly refreshed token. A failure discards the refresh.
type PersistFunc func(context.Context, *oauth2.Token) error

// TokenSource is an oauth2.TokenSource that refreshes early and persists each
// new token before handing it out.
type TokenSource struct {
	mu      sync.Mutex
	cfg     *oauth2.Config
	current *oauth2.Token
	persist PersistFunc
	now     func() time.Time
}

// NewTokenSource starts from token. persist may be nil.
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, persist PersistFunc) *TokenSource {
	return &TokenSource{cfg: cfg, current: token, persist: persist, now: time.Now}
}

func (ts *TokenSource) needsRefresh() bool {
	return !ts.current.Expiry.After(ts.now().Add(expiryBuffer))
}

// Token returns the current token, or a refreshed one when it is within
// expiryBuffer of expiring.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !ts.needsRefresh() {
		return ts.current, nil
	}

	next, err := ts.refresh(context.Background())
	if err != nil {
		return nil, err
	}
	ts.current = next
	return next, nil
}

// refresh always hits the token endpoint: the expiry is dropped so oauth2 does
// not hand back the old token while it is still nominally valid.
func (ts *TokenSource) refresh(ctx context.Context) (*oauth2.Token, error) {
	next, err := ts.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: ts.current.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	// Providers may omit the refresh token when it is unchanged
	if next.RefreshToken == "" {
		next.RefreshToken = ts.current.RefreshToken
	}
	if ts.persist == nil {
		return next, nil
	}
	if err := ts.persist(ctx, next); err != nil {
		return nil, fmt.Errorf("persisting refreshed token: %w", err)
	}
	return next, nil
}

// IsExpired reports whether the next Token call will refresh
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.needsRefresh()
}

// CurrentToken returns the held token without refreshing
func (ts *TokenSource) CurrentToken() *oauth2.Token {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.current
}
