package auth

import (
	"fmt"

	"golang.org/x/oauth2"
)

// DefaultScopes requested from the health provider
var DefaultScopes = []string{"hrv.read", "sleep.read", "heartrate.read", "workouts.read", "weather.read"}

// Config holds the OAuth client credentials and provider endpoints
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string // e.g., "http://localhost:8089/callback"
	Scopes       []string
}

// NewOAuthConfig creates an oauth2.Config from our Config
func NewOAuthConfig(cfg Config) *oauth2.Config {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      scopes,
	}
}

// AuthResult contains the token and account info from successful auth
type AuthResult struct {
	Token  *oauth2.Token
	UserID string
}

// ExtractUserID reads the provider's user id from the token response extras
func ExtractUserID(token *oauth2.Token) string {
	switch v := token.Extra("user_id").(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}
