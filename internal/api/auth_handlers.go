package api

import (
	"net/http"
	"time"

	"github.com/example/marketflow/internal/api/middleware"
	"github.com/example/marketflow/internal/auth"
	"github.com/example/marketflow/internal/domain/user"
	"github.com/example/marketflow/internal/readmodel"
	"go.uber.org/zap"
)

const (
	refreshCookie     = "refresh_token"
	refreshCookiePath = "/auth/refresh"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	userService  *user.Service
	jwtService   *auth.JWTService
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandlers(userService *user.Service, jwtService *auth.JWTService, secureCookie bool, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		userService:  userService,
		jwtService:   jwtService,
		secureCookie: secureCookie,
		logger:       logger.Named("auth"),
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse also carries the access token for clients that cannot use
// cookies.
type AuthResponse struct {
	User        readmodel.UserProfile `json:"user"`
	AccessToken string                `json:"access_token"`
	ExpiresAt   time.Time             `json:"expires_at"`
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	newUser, err := h.userService.Register(r.Context(), req.Email, req.Password, req.FullName, req.Phone)
	if err != nil {
		respondErr(h.logger, w, r, err)
		return
	}

	pair, err := h.jwtService.IssuePair(newUser.ID, newUser.Email, newUser.Role)
	if err != nil {
		respondErr(h.logger, w, r, err)
		return
	}
	h.setAuthCookies(w, pair)

	respondJSON(w, http.StatusCreated, AuthResponse{
		User:        readmodel.NewUserProfile(*newUser),
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
	})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(h.logger, w, r, err)
		return
	}

	pair, err := h.jwtService.IssuePair(u.ID, u.Email, u.Role)
	if err != nil {
		respondErr(h.logger, w, r, err)
		return
	}
	h.setAuthCookies(w, pair)
	h.userService.RecordLogin(r.Context(), u.ID, r.RemoteAddr, r.UserAgent())

	respondJSON(w, http.StatusOK, AuthResponse{
		User:        readmodel.NewUserProfile(*u),
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
	})
}

// Logout always clears the cookies, with or without a valid session.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		h.userService.RecordLogout(r.Context(), claims.UserID)
	}
	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Refresh accepts the refresh token from its cookie or a JSON body and
// rotates both tokens. The role is re-read so demotions apply immediately.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		token = cookie.Value
	} else {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = decode(r, &body)
		token = body.RefreshToken
	}
	if token == "" {
		respondJSONError(w, "no refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(token)
	if err != nil {
		h.clearAuthCookies(w)
		respondErr(h.logger, w, r, err)
		return
	}

	u, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	pair, err := h.jwtService.IssuePair(u.ID, u.Email, u.Role)
	if err != nil {
		respondErr(h.logger, w, r, err)
		return
	}
	h.setAuthCookies(w, pair)

	respondJSON(w, http.StatusOK, AuthResponse{
		User:        readmodel.NewUserProfile(*u),
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
	})
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondErr(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, readmodel.NewUserProfile(*u))
}

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	for name, path := range map[string]string{middleware.AccessCookie: "/", refreshCookie: refreshCookiePath} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookie,
		})
	}
}
