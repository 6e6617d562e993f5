package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	errs "github.com/ArnaudHalvick/storefront-go/pkg/errors"
	"github.com/ArnaudHalvick/storefront-go/pkg/validator"
)

// LoginInput carries the credentials for a sign-in.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignupInput carries the fields for account creation.
type SignupInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ResetPasswordInput carries a password-recovery token and the new password.
type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// User is the account profile returned by auth endpoints.
type User struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

// authResponse is the wire shape shared by login and signup.
type authResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

// messageResponse is the wire shape of endpoints that only acknowledge.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login authenticates with email and password. On success the access token
// is stored and the refresh credential is captured by the transport's cookie
// jar, so subsequent requests refresh transparently.
func (c *Client) Login(ctx context.Context, in LoginInput) (*User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var out authResponse
	if err := c.Post(ctx, LoginPath, in, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}
	if err := c.sessions.SetToken(ctx, out.AccessToken); err != nil {
		return nil, fmt.Errorf("persist access token: %w", err)
	}

	c.logger.InfoContext(ctx, "logged in", slog.String("user_id", out.User.ID))
	return &out.User, nil
}

// Signup creates an account. Depending on backend policy the response may
// carry a token (immediate session) or not (email verification first); both
// are handled.
func (c *Client) Signup(ctx context.Context, in SignupInput) (*User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var out authResponse
	if err := c.Post(ctx, SignupPath, in, &out); err != nil {
		return nil, err
	}
	if out.AccessToken != "" {
		if err := c.sessions.SetToken(ctx, out.AccessToken); err != nil {
			return nil, fmt.Errorf("persist access token: %w", err)
		}
	}

	c.logger.InfoContext(ctx, "account created", slog.String("user_id", out.User.ID))
	return &out.User, nil
}

// Logout ends the session: pending requests are cancelled, the server is
// told to revoke the refresh credential, and the local session enters the
// explicit logged-out state. The server call is best effort; local state is
// cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	c.CancelPendingRequests("logged out")

	if err := c.Post(ctx, LogoutPath, nil, nil); err != nil {
		c.logger.WarnContext(ctx, "server logout failed, clearing local session anyway",
			slog.String("error", err.Error()),
		)
	}

	if err := c.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	c.logger.InfoContext(ctx, "logged out")
	return nil
}

// RequestPasswordReset asks the server to email a recovery link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	in := struct {
		Email string `json:"email" validate:"required,email"`
	}{Email: email}
	if err := validateInput(in); err != nil {
		return err
	}
	return c.Post(ctx, ForgotPasswordPath, in, nil)
}

// ResetPassword completes a password recovery with the emailed token.
func (c *Client) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	return c.Post(ctx, ResetPasswordPath, in, nil)
}

// VerifyEmail confirms an account's email address with the emailed token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return errs.Validation(map[string]string{"token": "is required"})
	}
	in := struct {
		Token string `json:"token"`
	}{Token: token}
	return c.Post(ctx, VerifyEmailPath, in, nil)
}

// validateInput runs struct validation and maps failures into the client's
// validation error shape, so local and server-side validation look the same
// to callers.
func validateInput(in any) error {
	err := validator.Validate(in)
	if err == nil {
		return nil
	}
	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		return errs.Validation(vErr.Fields())
	}
	return fmt.Errorf("validate input: %w", err)
}
