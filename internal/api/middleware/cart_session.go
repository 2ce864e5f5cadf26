package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// CartSessionHeader carries the guest cart session for API clients
	CartSessionHeader = "X-Cart-Session"
	// CartSessionCookie carries the guest cart session for browsers
	CartSessionCookie = "cart_session"

	cartSessionMaxAge = 30 * 24 * time.Hour
)

const cartSessionKey contextKey = "cart_session"

// CartSession puts the caller's guest cart session, if any, in the context.
// The header wins over the cookie.
func CartSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(CartSessionHeader)
		if sessionID == "" {
			if cookie, err := r.Cookie(CartSessionCookie); err == nil {
				sessionID = cookie.Value
			}
		}
		if sessionID != "" {
			r = r.WithContext(context.WithValue(r.Context(), cartSessionKey, sessionID))
		}
		next.ServeHTTP(w, r)
	})
}

// GetCartSession returns the guest cart session of the request, or ""
func GetCartSession(ctx context.Context) string {
	sessionID, _ := ctx.Value(cartSessionKey).(string)
	return sessionID
}

// EnsureCartSession returns the request's cart session, minting one and
// handing it to the client (header and cookie) when there is none.
func EnsureCartSession(w http.ResponseWriter, r *http.Request) string {
	if sessionID := GetCartSession(r.Context()); sessionID != "" {
		return sessionID
	}

	sessionID := uuid.New().String()
	w.Header().Set(CartSessionHeader, sessionID)
	http.SetCookie(w, &http.Cookie{
		Name:     CartSessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(cartSessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

// ClearCartSession tells the client to drop its cart session
func ClearCartSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CartSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
