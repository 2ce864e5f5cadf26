package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/grocery-shop/internal/api/middleware"
	"github.com/example/grocery-shop/internal/auth"
	"github.com/example/grocery-shop/internal/cartsync"
	"github.com/example/grocery-shop/internal/domain/user"
	"github.com/example/grocery-shop/internal/query"
	"github.com/example/grocery-shop/internal/readmodel"
)

const refreshTokenCookie = "refresh_token"

var errInvalidRefreshToken = errors.New("invalid refresh token")

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	userService  *user.Service
	jwtService   *auth.JWTService
	queryHandler *query.Handler
	handlers     *Handlers
}

// NewAuthHandlers creates a new AuthHandlers instance. handlers is used to
// merge the guest cart on sign-in.
func NewAuthHandlers(userService *user.Service, jwtService *auth.JWTService, queryHandler *query.Handler, handlers *Handlers) *AuthHandlers {
	return &AuthHandlers{
		userService:  userService,
		jwtService:   jwtService,
		queryHandler: queryHandler,
		handlers:     handlers,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User      UserResponse          `json:"user"`
	Tokens    TokenResponse         `json:"tokens"`
	CartMerge *cartsync.MergeResult `json:"cart_merge,omitempty"`
	// CartMergeError is set when the guest cart could not be fully merged.
	// The guest session is kept so the merge can be retried.
	CartMergeError string `json:"cart_merge_error,omitempty"`
	Message        string `json:"message,omitempty"`
}

// TokenResponse carries the issued tokens for clients that do not use cookies
type TokenResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	LastLoginAt time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func userResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func userModelResponse(u *readmodel.UserReadModel) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.queryHandler.FindUserByEmail(req.Email); err == nil {
		writeError(w, r, errEmailTaken)
		return
	} else if !errors.Is(err, query.ErrNotFound) {
		writeError(w, r, err)
		return
	}

	newUser, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tokens, err := h.startSession(w, r, newUser.ID, newUser.Email, newUser.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := AuthResponse{
		User:    userResponse(newUser),
		Tokens:  tokens,
		Message: "Registration successful",
	}
	h.mergeOnSignIn(w, r, newUser.ID, &resp)
	respondJSON(w, http.StatusCreated, resp)
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	found, err := h.queryHandler.FindUserByEmail(req.Email)
	if errors.Is(err, query.ErrNotFound) {
		writeError(w, r, user.ErrInvalidCredentials)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The event store is authoritative for credentials and status.
	u, err := h.userService.Get(r.Context(), found.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !auth.CheckPassword(req.Password, u.PasswordHash) {
		writeError(w, r, user.ErrInvalidCredentials)
		return
	}
	if !u.IsActive {
		writeError(w, r, user.ErrUserDeactivated)
		return
	}

	tokens, err := h.startSession(w, r, u.ID, u.Email, u.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := AuthResponse{
		User:    userResponse(u),
		Tokens:  tokens,
		Message: "Login successful",
	}
	h.mergeOnSignIn(w, r, u.ID, &resp)
	respondJSON(w, http.StatusOK, resp)
}

// mergeOnSignIn moves the guest cart into the new session's server cart.
// A failed merge does not fail the sign-in; the guest cart keeps what was
// not merged, the cart session cookie is kept for a retry and the failure
// is reported in resp.
func (h *AuthHandlers) mergeOnSignIn(w http.ResponseWriter, r *http.Request, userID string, resp *AuthResponse) {
	sessionID := middleware.GetCartSession(r.Context())
	if sessionID == "" || h.handlers == nil {
		return
	}

	result, err := h.handlers.mergeGuestCart(r.Context(), sessionID, userID)
	resp.CartMerge = &result
	if err != nil {
		log.Printf("[Auth] Guest cart merge failed for user %s: %v", userID, err)
		resp.CartMergeError = err.Error()
		return
	}
	middleware.ClearCartSession(w)
}

// startSession issues an access token and a refresh token bound to a new
// session, records the login and sets the auth cookies.
func (h *AuthHandlers) startSession(w http.ResponseWriter, r *http.Request, userID, email, role string) (TokenResponse, error) {
	sessionID := uuid.New().String()
	tokens, err := h.issueTokens(userID, email, role, sessionID)
	if err != nil {
		return TokenResponse{}, err
	}

	err = h.userService.RecordLogin(r.Context(), userID, sessionID, r.RemoteAddr, r.UserAgent(),
		tokens.RefreshExpiresAt, auth.HashToken(tokens.RefreshToken))
	if err != nil {
		return TokenResponse{}, err
	}

	setAuthCookies(w, r, tokens)
	return tokens, nil
}

func (h *AuthHandlers) issueTokens(userID, email, role, sessionID string) (TokenResponse, error) {
	accessToken, accessExpiry, err := h.jwtService.GenerateAccessToken(userID, email, role)
	if err != nil {
		return TokenResponse{}, err
	}
	refreshToken, refreshExpiry, err := h.jwtService.GenerateRefreshToken(userID, sessionID)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// refreshTokenFrom reads the refresh token from its cookie or the JSON body
func refreshTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if r.Body == nil || r.ContentLength == 0 {
		return ""
	}
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		return ""
	}
	return req.RefreshToken
}

// Logout ends the session of the presented refresh token
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := refreshTokenFrom(r); token != "" {
		if claims, err := h.jwtService.ValidateRefreshToken(token); err == nil {
			if err := h.userService.RecordLogout(r.Context(), claims.UserID, claims.SessionID()); err != nil {
				log.Printf("[Auth] Failed to record logout for user %s: %v", claims.UserID, err)
			}
		}
	}

	clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

// Refresh rotates the refresh token of a live session and issues a new access token
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFrom(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "no refresh token", nil)
		return
	}

	u, sessionID, err := h.verifyRefreshToken(r.Context(), token)
	if err != nil {
		clearAuthCookies(w)
		if errors.Is(err, user.ErrUserDeactivated) {
			writeError(w, r, err)
			return
		}
		respondError(w, http.StatusUnauthorized, errInvalidRefreshToken.Error(), nil)
		return
	}

	tokens, err := h.issueTokens(u.ID, u.Email, u.Role, sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.userService.RefreshSession(r.Context(), u.ID, sessionID, auth.HashToken(tokens.RefreshToken), tokens.RefreshExpiresAt); err != nil {
		writeError(w, r, err)
		return
	}

	setAuthCookies(w, r, tokens)
	respondJSON(w, http.StatusOK, AuthResponse{
		User:    userResponse(u),
		Tokens:  tokens,
		Message: "Token refreshed",
	})
}

// verifyRefreshToken checks the token against its session. A token that
// was already rotated no longer matches the stored hash.
func (h *AuthHandlers) verifyRefreshToken(ctx context.Context, token string) (*user.User, string, error) {
	claims, err := h.jwtService.ValidateRefreshToken(token)
	if err != nil {
		return nil, "", err
	}

	session, err := h.queryHandler.GetSession(claims.SessionID())
	if err != nil {
		return nil, "", err
	}
	if session.UserID != claims.UserID || time.Now().After(session.ExpiresAt) {
		return nil, "", errInvalidRefreshToken
	}
	if session.RefreshTokenHash != auth.HashToken(token) {
		return nil, "", errInvalidRefreshToken
	}

	u, err := h.userService.Get(ctx, claims.UserID)
	if err != nil {
		return nil, "", err
	}
	if !u.IsActive {
		return nil, "", user.ErrUserDeactivated
	}
	return u, session.ID, nil
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(u))
}

func (h *AuthHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.userService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(u))
}

// ChangePassword changes the password and ends every session of the user
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.userService.ChangePassword(r.Context(), middleware.GetUserID(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}

	clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully",
	})
}

// Admin user management

func (h *AuthHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.queryHandler.ListUsers()
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userModelResponse(u))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *AuthHandlers) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == middleware.GetUserID(r.Context()) {
		respondError(w, http.StatusBadRequest, "cannot deactivate your own account", nil)
		return
	}

	u, err := h.userService.Deactivate(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(u))
}

func (h *AuthHandlers) ActivateUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(u))
}

// Helper methods

func setAuthCookies(w http.ResponseWriter, r *http.Request, tokens TokenResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/api/auth",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
