package stubapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ArnaudHalvick/storefront-go/pkg/pagination"
	"github.com/ArnaudHalvick/storefront-go/pkg/validator"
)

type contextKey string

const emailKey contextKey = "email"

func withEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

func emailFrom(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"success": false,
		"message": "Some fields are invalid.",
		"errors":  fields,
	})
}

type signupRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupRequest
	if !s.decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	if _, exists := s.users[in.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "An account with that email already exists.")
		return
	}
	s.users[in.Email] = &user{Name: in.Name, Email: in.Email, Password: in.Password}
	s.verifications[uuid.NewString()] = in.Email
	token, err := s.issueAccessToken(in.Email)
	refreshToken := newRefreshToken()
	s.refresh[refreshToken] = in.Email
	s.mu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token.")
		return
	}
	setRefreshCookie(w, refreshToken)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"accessToken": token,
		"user":        map[string]any{"id": in.Email, "name": in.Name, "email": in.Email, "isEmailVerified": false},
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !s.decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	u, exists := s.users[in.Email]
	if !exists || u.Password != in.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}
	token, err := s.issueAccessToken(in.Email)
	refreshToken := newRefreshToken()
	s.refresh[refreshToken] = in.Email
	s.mu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token.")
		return
	}
	setRefreshCookie(w, refreshToken)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"accessToken": token,
		"user":        map[string]any{"id": u.Email, "name": u.Name, "email": u.Email, "isEmailVerified": u.Verified},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshCookie); err == nil {
		s.mu.Lock()
		delete(s.refresh, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: "", MaxAge: -1, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookie)

	s.mu.Lock()
	s.refreshCalls++
	var email string
	var known bool
	if err == nil {
		email, known = s.refresh[cookie.Value]
	}
	if !known {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Refresh credential invalid.")
		return
	}
	token, issueErr := s.issueAccessToken(email)
	s.mu.Unlock()

	if issueErr != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "accessToken": token})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email" validate:"required,email"`
	}
	if !s.decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	if _, exists := s.users[in.Email]; exists {
		s.resets[uuid.NewString()] = in.Email
	}
	s.mu.Unlock()

	// Always acknowledge so the endpoint does not leak which accounts exist.
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "If that account exists, a recovery email is on its way.",
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
	}
	if !s.decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	email, known := s.resets[in.Token]
	if !known {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Recovery token invalid or expired.")
		return
	}
	delete(s.resets, in.Token)
	s.users[email].Password = in.Password
	// A password reset revokes every refresh credential for the account.
	for token, owner := range s.refresh {
		if owner == email {
			delete(s.refresh, token)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password updated. Please sign in.",
	})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token" validate:"required"`
	}
	if !s.decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	email, known := s.verifications[in.Token]
	if !known {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Verification token invalid or expired.")
		return
	}
	delete(s.verifications, in.Token)
	s.users[email].Verified = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	s.mu.Lock()
	all := s.products
	s.mu.Unlock()

	start, end := params.Slice(len(all))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": all[start:end],
		"total":    len(all),
		"page":     params.Page,
	})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.cartBodyLocked(emailFrom(r.Context()))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var in addItemRequest
	if !s.decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	price, found := s.priceLocked(in.ProductID)
	if !found {
		writeError(w, http.StatusNotFound, "Product not found.")
		return
	}

	email := emailFrom(r.Context())
	lines := s.cartLocked(email)
	key := s.lineKey(in.ProductID, in.Size)
	line := lines[key]
	line.ProductID = in.ProductID
	line.Size = in.Size
	line.UnitPrice = price
	line.Quantity += in.Quantity
	lines[key] = line

	writeJSON(w, http.StatusOK, s.cartBodyLocked(email))
}

type updateItemRequest struct {
	Size     string `json:"size" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	var in updateItemRequest
	if !s.decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := emailFrom(r.Context())
	lines := s.cartLocked(email)
	key := s.lineKey(productID, in.Size)
	line, exists := lines[key]
	if !exists {
		writeError(w, http.StatusNotFound, "That item is not in the cart.")
		return
	}
	line.Quantity = in.Quantity
	lines[key] = line

	writeJSON(w, http.StatusOK, s.cartBodyLocked(email))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	size := r.URL.Query().Get("size")
	if size == "" {
		writeValidationError(w, map[string]string{"size": "is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := emailFrom(r.Context())
	lines := s.cartLocked(email)
	key := s.lineKey(productID, size)
	line, exists := lines[key]
	if exists {
		if rawQty := r.URL.Query().Get("quantity"); rawQty != "" {
			qty, err := strconv.Atoi(rawQty)
			if err != nil || qty < 1 {
				writeValidationError(w, map[string]string{"quantity": "must be a positive integer"})
				return
			}
			line.Quantity -= qty
			if line.Quantity <= 0 {
				delete(lines, key)
			} else {
				lines[key] = line
			}
		} else {
			// No quantity means remove the whole line.
			delete(lines, key)
		}
	}

	writeJSON(w, http.StatusOK, s.cartBodyLocked(email))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := emailFrom(r.Context())
	s.carts[email] = make(map[string]cartLine)
	writeJSON(w, http.StatusOK, s.cartBodyLocked(email))
}

// cartLocked returns the email's line map, creating it if needed. Caller
// holds s.mu.
func (s *Server) cartLocked(email string) map[string]cartLine {
	lines, exists := s.carts[email]
	if !exists {
		lines = make(map[string]cartLine)
		s.carts[email] = lines
	}
	return lines
}

// cartBodyLocked builds the {success, cart} response body. Caller holds s.mu.
func (s *Server) cartBodyLocked(email string) map[string]any {
	lines := make([]cartLine, 0, len(s.carts[email]))
	var totalItems int
	var totalPrice int64
	for _, line := range s.carts[email] {
		lines = append(lines, line)
		totalItems += line.Quantity
		totalPrice += int64(line.Quantity) * line.UnitPrice
	}
	return map[string]any{
		"success": true,
		"cart": map[string]any{
			"lines":      lines,
			"totalItems": totalItems,
			"totalPrice": totalPrice,
		},
	}
}

func (s *Server) priceLocked(productID string) (int64, bool) {
	for _, p := range s.products {
		if p.ID == productID {
			return p.Price, true
		}
	}
	return 0, false
}

// decode parses and validates the request body, writing the error response
// itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			writeValidationError(w, vErr.Fields())
			return false
		}
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return false
	}
	return true
}

func setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
