package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type contextKey string

const ClerkIDKey contextKey = "clerkID"
const AdminKey contextKey = "admin"

// resolverKey holds the lazy session check installed by OptionalAdmin.
const resolverKey contextKey = "adminResolver"

const sessionCookie = "__session"

var errNoToken = errors.New("no session token")

// AdminAuth gates routes to the one allow-listed Clerk account.
type AdminAuth struct {
	adminEmail string
	loginURL   string
	logger     zerolog.Logger

	// Verify and LookupEmail default to the Clerk SDK and are swapped in tests.
	Verify      func(ctx context.Context, token string) (string, error)
	LookupEmail func(ctx context.Context, clerkID string) ([]string, error)
}

func NewAdminAuth(adminEmail, loginURL string, logger zerolog.Logger) *AdminAuth {
	return &AdminAuth{
		adminEmail:  strings.TrimSpace(adminEmail),
		loginURL:    loginURL,
		logger:      logger.With().Str("component", "auth").Logger(),
		Verify:      verifyClerkToken,
		LookupEmail: clerkEmails,
	}
}

func verifyClerkToken(ctx context.Context, token string) (string, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func clerkEmails(ctx context.Context, clerkID string) ([]string, error) {
	u, err := user.Get(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(u.EmailAddresses))
	for _, e := range u.EmailAddresses {
		if u.PrimaryEmailAddressID != nil && e.ID == *u.PrimaryEmailAddressID {
			return []string{e.EmailAddress}, nil
		}
		emails = append(emails, e.EmailAddress)
	}
	return emails, nil
}

// sessionToken reads the bearer token, falling back to the Clerk session
// cookie set by the hosted sign-in page.
func sessionToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			return "", errors.New("invalid authorization format, use 'Bearer <token>'")
		}
		return token, nil
	}

	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errNoToken
}

// authenticate returns the Clerk user id and whether that user is the admin.
func (a *AdminAuth) authenticate(r *http.Request) (string, bool, error) {
	token, err := sessionToken(r)
	if err != nil {
		return "", false, err
	}

	clerkID, err := a.Verify(r.Context(), token)
	if err != nil {
		return "", false, err
	}

	emails, err := a.LookupEmail(r.Context(), clerkID)
	if err != nil {
		return clerkID, false, err
	}

	for _, email := range emails {
		if a.adminEmail != "" && strings.EqualFold(strings.TrimSpace(email), a.adminEmail) {
			return clerkID, true, nil
		}
	}
	return clerkID, false, nil
}

func withAdmin(r *http.Request, clerkID string, admin bool) *http.Request {
	ctx := context.WithValue(r.Context(), ClerkIDKey, clerkID)
	ctx = context.WithValue(ctx, AdminKey, admin)
	return r.WithContext(ctx)
}

// RequireAdmin rejects everyone but the admin. Browsers without a session
// are sent to the sign-in page.
func (a *AdminAuth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clerkID, admin, err := a.authenticate(r)
		if err != nil {
			a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("unauthenticated admin request")
			if wantsHTML(r) {
				http.Redirect(w, r, a.loginURL, http.StatusFound)
				return
			}
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		if !admin {
			a.logger.Warn().Str("clerk_id", clerkID).Str("path", r.URL.Path).Msg("non-admin user rejected")
			respondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}

		next.ServeHTTP(w, withAdmin(r, clerkID, true))
	})
}

// OptionalAdmin lets every request through. The session is only checked
// with Clerk the first time a handler asks IsAdmin or GetClerkID, so plain
// browsing with a session cookie costs no Clerk calls.
func (a *AdminAuth) OptionalAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := sessionToken(r); err != nil {
			next.ServeHTTP(w, r)
			return
		}

		original := r
		resolve := sync.OnceValues(func() (string, bool) {
			clerkID, admin, err := a.authenticate(original)
			if err != nil {
				a.logger.Debug().Err(err).Str("path", original.URL.Path).Msg("optional session rejected")
				return "", false
			}
			return clerkID, admin
		})

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), resolverKey, resolve)))
	})
}

// DisabledAdmin stands in for RequireAdmin when Clerk is not configured.
func DisabledAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusServiceUnavailable, "Admin access is not configured")
	})
}

func wantsHTML(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}

func resolved(ctx context.Context) (string, bool, bool) {
	resolve, ok := ctx.Value(resolverKey).(func() (string, bool))
	if !ok {
		return "", false, false
	}
	clerkID, admin := resolve()
	return clerkID, admin, true
}

// IsAdmin reports whether RequireAdmin or OptionalAdmin accepted the caller.
func IsAdmin(ctx context.Context) bool {
	if admin, ok := ctx.Value(AdminKey).(bool); ok {
		return admin
	}
	_, admin, _ := resolved(ctx)
	return admin
}

// GetClerkID extracts Clerk user ID from context
func GetClerkID(ctx context.Context) (string, bool) {
	if clerkID, ok := ctx.Value(ClerkIDKey).(string); ok {
		return clerkID, true
	}
	clerkID, _, ok := resolved(ctx)
	return clerkID, ok && clerkID != ""
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
