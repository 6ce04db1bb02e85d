// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the single sign-on provider settings.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// NewOIDCConfig discovers the provider at issuerURL.
func NewOIDCConfig(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string) (*OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

type loginRequest struct {
	Username *string `param:"username" validate:"required"`
	Password *string `param:"password" validate:"required"`
	OTP      string  `param:"otp"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := paramsFrom(r.Context())
	req := loginRequest{
		Username: p.ptr("username"),
		Password: p.ptr("password"),
		OTP:      p.str("otp"),
	}
	if err := s.checkRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}

	token, err := s.auth.Login(r.Context(), *req.Username, *req.Password, req.OTP)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "login successful", envelope{"token": token, "username": *req.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.fail(w, r, errMissingToken)
		return
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "logged out", nil)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.fail(w, r, errMissingToken)
		return
	}
	if err := s.auth.VerifyToken(r.Context(), token); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "token valid", nil)
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if s.opts.OIDC == nil || !s.opts.OIDC.Enabled {
		s.reply(w, r, http.StatusNotFound, envelope{"success": false, "message": "sso disabled"})
		return
	}
	state, err := generateState()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode, // Lax required for cross-site redirect returns
		MaxAge:   300,
	})
	http.Redirect(w, r, s.opts.OIDC.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if s.opts.OIDC == nil || !s.opts.OIDC.Enabled {
		s.reply(w, r, http.StatusNotFound, envelope{"success": false, "message": "sso disabled"})
		return
	}
	cfg := s.opts.OIDC

	state, err := r.Cookie("oauth_state")
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		s.fail(w, r, errInvalidState)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", MaxAge: -1, Path: "/"})

	token, err := cfg.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("sso: exchange code: %w", err))
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		s.fail(w, r, errors.New("sso: token response has no id_token"))
		return
	}
	idToken, err := cfg.Provider.Verifier(&oidc.Config{ClientID: cfg.OAuth2Config.ClientID}).Verify(r.Context(), rawIDToken)
	if err != nil {
		s.fail(w, r, fmt.Errorf("sso: verify id_token: %w", err))
		return
	}

	var claims struct {
		Email string `json:"email"`
		Sub   string `json:"sub"`
	}
	if err = idToken.Claims(&claims); err != nil {
		s.fail(w, r, fmt.Errorf("sso: parse claims: %w", err))
		return
	}
	username := claims.Email
	if username == "" {
		username = claims.Sub
	}

	sessionToken, err := s.auth.LoginWithUser(r.Context(), username)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// the editor client reads the session from the fragment
	fragment := url.Values{"token": {sessionToken}, "username": {username}}
	http.Redirect(w, r, "/#"+fragment.Encode(), http.StatusFound)
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
