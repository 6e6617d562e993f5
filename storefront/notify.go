package storefront

// Notifier receives fire-and-forget session signals for navigation-level
// reactions (redirect to login, show a verification banner). Implementations
// must not block; the client calls these inline on the request path.
type Notifier interface {
	// TokenRefreshFailed fires when a token refresh fails terminally and
	// the session has been cleared.
	TokenRefreshFailed(err error)

	// EmailVerificationRequired fires when the server rejects a request
	// because the account's email address is not verified yet.
	EmailVerificationRequired(message string)
}

// NopNotifier discards all signals. It is the default.
type NopNotifier struct{}

func (NopNotifier) TokenRefreshFailed(error)         {}
func (NopNotifier) EmailVerificationRequired(string) {}

// NotifierFuncs adapts plain functions to the Notifier interface. Nil
// functions are ignored.
type NotifierFuncs struct {
	OnTokenRefreshFailed        func(err error)
	OnEmailVerificationRequired func(message string)
}

func (n NotifierFuncs) TokenRefreshFailed(err error) {
	if n.OnTokenRefreshFailed != nil {
		n.OnTokenRefreshFailed(err)
	}
}

func (n NotifierFuncs) EmailVerificationRequired(message string) {
	if n.OnEmailVerificationRequired != nil {
		n.OnEmailVerificationRequired(message)
	}
}
