package main

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nickyhof/SheetDB/core"
)

// AuthConfig configures JWT authentication. When Enabled, a connection must
// send {"op":"auth","token":"..."} before any other request and its commits
// are authored by the identity in the token.
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// JWTSecret is the shared secret for HS256/384/512 tokens.
	JWTSecret string `mapstructure:"jwt_secret"`

	// Issuer and Audience are checked against "iss" and "aud" when set.
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`

	NameClaim  string `mapstructure:"name_claim"`  // default "name"
	EmailClaim string `mapstructure:"email_claim"` // default "email"
}

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrInvalidToken = errors.New("invalid token")
)

// connState is the per-connection authentication state.
type connState struct {
	identity      core.Identity
	authenticated bool
	expiresAt     time.Time
}

func (cs *connState) expired(now time.Time) bool {
	return !cs.expiresAt.IsZero() && now.After(cs.expiresAt)
}

// validateJWT checks the signature and registered claims of a token and
// returns the identity it carries.
func (cfg *AuthConfig) validateJWT(tokenString string) (core.Identity, time.Time, error) {
	if cfg == nil || cfg.JWTSecret == "" {
		return core.Identity{}, time.Time{}, errors.New("authentication not configured")
	}

	nameClaim := cfg.NameClaim
	if nameClaim == "" {
		nameClaim = "name"
	}
	emailClaim := cfg.EmailClaim
	if emailClaim == "" {
		emailClaim = "email"
	}

	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, parserOpts...)
	if err != nil {
		return core.Identity{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return core.Identity{}, time.Time{}, ErrInvalidToken
	}

	if cfg.Audience != "" {
		audiences, _ := claims.GetAudience()
		if !slices.Contains(audiences, cfg.Audience) {
			return core.Identity{}, time.Time{}, fmt.Errorf("%w: audience must include %s", ErrInvalidToken, cfg.Audience)
		}
	}

	name, _ := claims[nameClaim].(string)
	email, _ := claims[emailClaim].(string)
	if name == "" && email == "" {
		return core.Identity{}, time.Time{}, fmt.Errorf("%w: missing %s and %s claims", ErrInvalidToken, nameClaim, emailClaim)
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}
	return core.Identity{Name: name, Email: email}, expiresAt, nil
}

// handleAuth authenticates a connection from an auth request.
func (s *Server) handleAuth(token string, state *connState) Response {
	if s.auth == nil || !s.auth.Enabled {
		return errorResponse(typeAuth, fmt.Errorf("%w: authentication is not enabled", ErrInvalidToken))
	}

	identity, expiresAt, err := s.auth.validateJWT(token)
	if err != nil {
		s.metrics.authFailures.Inc()
		return errorResponse(typeAuth, err)
	}

	state.identity = identity
	state.authenticated = true
	state.expiresAt = expiresAt

	ar := AuthResponse{Authenticated: true, Identity: identity.String()}
	if !expiresAt.IsZero() {
		ar.ExpiresIn = int(time.Until(expiresAt).Seconds())
	}
	return resultResponse(typeAuth, ar)
}
