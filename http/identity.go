package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sagarc03/filevault"
)

const (
	IdentityModeJWT    = "jwt"
	IdentityModeHeader = "header"

	// DefaultIdentityHeader carries the subject set by an upstream authorizer.
	DefaultIdentityHeader = "X-Authenticated-Subject"
	// DefaultKeyID is used for tokens without a kid header.
	DefaultKeyID = "default"
)

// KeyFinder resolves a token signing secret by key id.
// *keybackend.MapSecretStore implements it.
type KeyFinder interface {
	Find(keyID string) (string, bool)
}

type IdentityConfig struct {
	Mode     string        // "jwt" or "header"
	Header   string        // header mode: trusted subject header (default X-Authenticated-Subject)
	Keys     KeyFinder     // jwt mode: HS256 secrets by kid
	Issuer   string        // jwt mode: required iss when set
	Audience string        // jwt mode: required aud when set
	Leeway   time.Duration // jwt mode: clock skew allowance
}

// IdentityMiddleware resolves the caller's owner id and stores it on the
// request context with filevault.WithOwner. Requests without a valid identity
// are answered 401 before reaching the handler.
//
// In jwt mode the owner is the sub claim of an HS256 bearer token with a
// mandatory exp. In header mode the owner is read from cfg.Header, which must
// only be reachable through an authorizer that sets it.
func IdentityMiddleware(cfg IdentityConfig) (func(http.Handler) http.Handler, error) {
	var resolve func(r *http.Request) (string, error)

	switch cfg.Mode {
	case IdentityModeJWT:
		if cfg.Keys == nil {
			return nil, errors.New("identity middleware: jwt mode requires keys")
		}
		resolve = jwtResolver(cfg)
	case IdentityModeHeader:
		header := cfg.Header
		if header == "" {
			header = DefaultIdentityHeader
		}
		resolve = func(r *http.Request) (string, error) {
			owner := r.Header.Get(header)
			if owner == "" {
				return "", fmt.Errorf("missing %s header", header)
			}
			return owner, nil
		}
	default:
		return nil, fmt.Errorf("identity middleware: unsupported mode: %q", cfg.Mode)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := resolve(r)
			if err == nil && !filevault.IsValidOwnerID(owner) {
				err = errors.New("malformed subject")
			}
			if err != nil {
				slog.DebugContext(r.Context(), "identity rejected", "mode", cfg.Mode, "error", err)
				HandleError(w, r, fmt.Errorf("identity: %w: %w", filevault.ErrAuthentication, err))
				return
			}

			next.ServeHTTP(w, r.WithContext(filevault.WithOwner(r.Context(), owner)))
		})
	}, nil
}

func jwtResolver(cfg IdentityConfig) func(r *http.Request) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	parser := jwt.NewParser(opts...)

	keyFunc := func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			kid = DefaultKeyID
		}
		secret, ok := cfg.Keys.Find(kid)
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return []byte(secret), nil
	}

	return func(r *http.Request) (string, error) {
		raw, ok := bearerToken(r)
		if !ok {
			return "", errors.New("missing bearer token")
		}

		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
			return "", err
		}

		return claims.Subject, nil
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireIdentity returns identity, or a middleware rejecting every request
// when none is configured.
func requireIdentity(identity func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if identity != nil {
		return identity
	}
	return func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			HandleError(w, r, fmt.Errorf("identity: %w: not configured", filevault.ErrAuthentication))
		})
	}
}
