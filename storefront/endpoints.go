package storefront

import "strings"

// API paths consumed by the client. The backend owns these contracts.
const (
	RefreshTokenPath   = "/auth/refresh-token"
	LoginPath          = "/auth/login"
	SignupPath         = "/auth/signup"
	LogoutPath         = "/auth/logout"
	ForgotPasswordPath = "/auth/forgot-password"
	ResetPasswordPath  = "/auth/reset-password"
	VerifyEmailPath    = "/auth/verify-email"
	ProductsPath       = "/products"
	CartPath           = "/cart"
	CartItemsPath      = "/cart/items"
)

// publicPathFragments is the fixed allow-list of unauthenticated endpoints.
// Requests whose path contains one of these fragments bypass the logged-out
// gate entirely, so a logged-out user can still sign in, sign up, recover a
// password, or browse the catalog.
var publicPathFragments = []string{
	"/auth/login",
	"/auth/signup",
	"/auth/forgot-password",
	"/auth/reset-password",
	"/auth/verify-email",
	"/products",
}

// cancelExemptFragments lists the endpoints that never carry the shared
// cancellation handle. Logging out must not cancel the very request trying
// to establish a new session.
var cancelExemptFragments = []string{
	"/auth/refresh-token",
	"/auth/login",
	"/auth/signup",
	"/auth/forgot-password",
	"/auth/reset-password",
}

func isPublicPath(path string) bool {
	for _, fragment := range publicPathFragments {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

func isCancelExempt(path string) bool {
	for _, fragment := range cancelExemptFragments {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}
