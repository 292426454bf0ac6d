package middleware

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ErrInvalidToken is returned when a bearer token cannot be verified
var ErrInvalidToken = errors.New("invalid token")

// CustomClaims holds every non-registered claim of the token. The role claim
// is namespaced and configurable, so it is looked up by name.
type CustomClaims map[string]any

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// rolePrecedence orders roles from most to least privileged
var rolePrecedence = []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleStaff}

// Role resolves the staff role from the named claim. The claim may be a
// single string or a list; a list yields its most privileged known role.
// Missing or unknown values resolve to guest.
func (c CustomClaims) Role(claim string) domain.Role {
	switch v := c[claim].(type) {
	case string:
		return domain.ParseRole(strings.ToLower(strings.TrimSpace(v)))
	case []any:
		held := make(map[domain.Role]bool, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				held[domain.ParseRole(strings.ToLower(strings.TrimSpace(s)))] = true
			}
		}
		for _, r := range rolePrecedence {
			if held[r] {
				return r
			}
		}
	}
	return domain.RoleGuest
}

// TokenVerifier turns a bearer token into the verified actor
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Actor, error)
}

// Auth0Verifier verifies Auth0-issued RS256 access tokens
type Auth0Verifier struct {
	validator *validator.Validator
	roleClaim string
}

// NewAuth0Verifier creates a verifier for the tenant domain and API audience
func NewAuth0Verifier(tenant, audience, roleClaim string) (*Auth0Verifier, error) {
	issuerURL, err := url.Parse("https://" + tenant + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return &Auth0Verifier{
		validator: jwtValidator,
		roleClaim: roleClaim,
	}, nil
}

// Verify validates the token and derives the actor from its claims
func (v *Auth0Verifier) Verify(ctx context.Context, token string) (domain.Actor, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		log.Debug().Err(err).Msg("Token validation failed")
		return domain.Actor{}, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return domain.Actor{}, ErrInvalidToken
	}
	return ActorFromClaims(validatedClaims, v.roleClaim)
}

// ActorFromClaims builds the actor from validated claims. A token without a
// subject is rejected.
func ActorFromClaims(claims *validator.ValidatedClaims, roleClaim string) (domain.Actor, error) {
	subject := strings.TrimSpace(claims.RegisteredClaims.Subject)
	if subject == "" {
		return domain.Actor{}, ErrInvalidToken
	}

	role := domain.RoleGuest
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok && custom != nil {
		role = custom.Role(roleClaim)
	}
	return domain.Actor{ID: subject, Role: role}, nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// ActorKey is the context key for the authenticated actor
const ActorKey contextKey = "actor"

// AuthMiddleware authenticates bearer tokens
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate returns an Echo middleware that verifies the bearer token and
// stores the actor in the request context
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return unauthorizedError(c, "missing or malformed authorization header")
			}

			actor, err := m.verifier.Verify(c.Request().Context(), token)
			if err != nil {
				return unauthorizedError(c, "invalid token")
			}

			c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// WithActor stores the actor in ctx
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor extracts the authenticated actor from the request context
func GetActor(c echo.Context) (domain.Actor, bool) {
	actor, ok := c.Request().Context().Value(ActorKey).(domain.Actor)
	return actor, ok
}
