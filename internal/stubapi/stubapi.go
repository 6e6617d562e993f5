// Package stubapi is an in-memory storefront backend used by package tests
// and the local dev command. It implements just enough of the API contract
// the client depends on: cookie-based token refresh, the auth endpoints, a
// small public catalog, and the cart routes.
package stubapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ArnaudHalvick/storefront-go/pkg/slug"
)

const (
	// TokenHeader is the header the backend reads the bearer token from.
	TokenHeader = "auth-token"

	// RefreshCookie carries the refresh credential.
	RefreshCookie = "refresh-token"
)

// Config controls stub behavior.
type Config struct {
	// AccessTokenTTL is how long issued access tokens stay valid. JWT
	// expiry claims carry whole seconds, so sub-second values mint tokens
	// that are already expired; use RevokeAccessTokens to force expiry in
	// tests instead.
	AccessTokenTTL time.Duration

	// SigningKey signs issued JWTs. A default is used when empty.
	SigningKey []byte
}

// Server is the stub backend. All state is in memory and guarded by one
// mutex; the stub favors simplicity over throughput.
type Server struct {
	cfg    Config
	router chi.Router

	mu            sync.Mutex
	users         map[string]*user               // by email
	refresh       map[string]string              // refresh token -> email
	resets        map[string]string              // reset token -> email
	verifications map[string]string              // verification token -> email
	carts         map[string]map[string]cartLine // email -> line key -> line
	products      []product

	refreshCalls int
}

type user struct {
	Name     string
	Email    string
	Password string
	Verified bool
}

type product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	Price    int64    `json:"price"`
	Sizes    []string `json:"sizes"`
	ImageURL string   `json:"imageUrl"`
}

type cartLine struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// New creates a stub backend with a small seeded catalog.
func New(cfg Config) *Server {
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if len(cfg.SigningKey) == 0 {
		cfg.SigningKey = []byte("stub-signing-key")
	}

	s := &Server{
		cfg:           cfg,
		users:         make(map[string]*user),
		refresh:       make(map[string]string),
		resets:        make(map[string]string),
		verifications: make(map[string]string),
		carts:         make(map[string]map[string]cartLine),
		products: []product{
			{ID: "p1", Name: "Basic Tee", Price: 1999, Sizes: []string{"S", "M", "L"}},
			{ID: "p2", Name: "Hoodie", Price: 4999, Sizes: []string{"M", "L", "XL"}},
			{ID: "p3", Name: "Cap", Price: 1499, Sizes: []string{"One"}},
		},
	}
	for i := range s.products {
		s.products[i].Slug = slug.Generate(s.products[i].Name)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/refresh-token", s.handleRefresh)
		r.Post("/auth/forgot-password", s.handleForgotPassword)
		r.Post("/auth/reset-password", s.handleResetPassword)
		r.Post("/auth/verify-email", s.handleVerifyEmail)
		r.Get("/products", s.handleProducts)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/cart", s.handleGetCart)
			r.Post("/cart/items", s.handleAddItem)
			r.Put("/cart/items/{productID}", s.handleUpdateItem)
			r.Delete("/cart/items/{productID}", s.handleRemoveItem)
			r.Delete("/cart", s.handleClearCart)
		})
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RefreshCalls reports how many refresh-token exchanges the stub has served.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// RevokeAccessTokens invalidates every outstanding access token by rotating
// the signing key. Refresh credentials are untouched, so the next refresh
// exchange yields a working token again.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.SigningKey = []byte(uuid.NewString())
}

// SeedUser registers an account directly, bypassing the signup endpoint.
func (s *Server) SeedUser(name, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = &user{Name: name, Email: email, Password: password, Verified: true}
}

// PasswordResetToken returns the outstanding recovery token for email. In a
// real backend this token travels by email; the stub hands it to the test.
func (s *Server) PasswordResetToken(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, owner := range s.resets {
		if owner == email {
			return token, true
		}
	}
	return "", false
}

// EmailVerificationToken returns the outstanding verification token for
// email.
func (s *Server) EmailVerificationToken(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, owner := range s.verifications {
		if owner == email {
			return token, true
		}
	}
	return "", false
}

// issueAccessToken mints a signed JWT for email. Caller holds s.mu.
func (s *Server) issueAccessToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"sub": email,
		"exp": jwt.NewNumericDate(time.Now().Add(s.cfg.AccessTokenTTL)),
		"iat": jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.SigningKey)
}

// emailForToken validates a bearer token and returns the subject.
func (s *Server) emailForToken(raw string) (string, bool) {
	s.mu.Lock()
	key := s.cfg.SigningKey
	s.mu.Unlock()

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.emailForToken(r.Header.Get(TokenHeader))
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(withEmail(r.Context(), email)))
	})
}

func (s *Server) lineKey(productID, size string) string {
	return productID + "|" + size
}

func newRefreshToken() string {
	return uuid.NewString()
}
