package auth

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redmonkez12/go-task-api/internal/httputil"
	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/ratelimit"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter ratelimit.Limiter
	logger      *logging.Logger
}

func NewHandler(service *Service, rateLimiter ratelimit.Limiter, logger *logging.Logger) *Handler {
	if rateLimiter == nil {
		rateLimiter = ratelimit.Noop{}
	}
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// LoginResponse carries the session token. Token mirrors AccessToken for
// clients that expect a bare {"token": ...} body.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	Token       string    `json:"token"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	// Rate limit by IP
	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "register")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for register", "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	// Record IP request for rate limiting
	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "register"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	newUser, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUser):
			logger.Warn("registration failed: user already exists")
			respondError(w, "user already exists", httputil.CodeDuplicateUser, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidInput):
			logger.Warn("registration failed: validation error", "error", err.Error())
			respondError(w, err.Error(), httputil.CodeInvalidInput, http.StatusBadRequest)
		case errors.Is(err, ErrStorageUnavailable):
			respondError(w, "service temporarily unavailable", httputil.CodeServiceUnavailable, http.StatusServiceUnavailable)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			respondError(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered successfully", "user_id", newUser.ID)

	respondJSON(w, RegisterResponse{
		Message: "user registered successfully",
		User: UserResponse{
			ID:    newUser.ID,
			Email: newUser.Email,
		},
	}, http.StatusOK)
}

// Login handles user login. Failed attempts are counted per email whether
// or not the account exists, so a lockout reveals nothing either.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	// Rate limit by IP
	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "login")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for login", "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	// Record IP request for rate limiting
	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "login"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	email := failedLoginKey(req.Email)
	locked, err := h.rateLimiter.CheckFailedLogins(r.Context(), email)
	if err != nil {
		logger.Error("failed to check failed logins", "error", err.Error())
	} else if locked {
		logger.Warn("too many failed logins", "email", email)
		respondError(w, "too many failed login attempts, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials", "email", email)
			if err := h.rateLimiter.RecordFailedLogin(r.Context(), email); err != nil {
				logger.Error("failed to record failed login", "error", err.Error())
			}
			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, ErrStorageUnavailable):
			respondError(w, "service temporarily unavailable", httputil.CodeServiceUnavailable, http.StatusServiceUnavailable)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	if err := h.rateLimiter.ResetFailedLogins(r.Context(), email); err != nil {
		logger.Error("failed to reset failed logins", "error", err.Error())
	}

	logger.Info("user logged in successfully", "email", email)

	respondJSON(w, LoginResponse{
		AccessToken: session.AccessToken,
		TokenType:   session.TokenType,
		ExpiresIn:   session.ExpiresIn,
		ExpiresAt:   session.ExpiresAt,
		Token:       session.AccessToken,
	}, http.StatusOK)
}

// Logout revokes the bearer token used for this request
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	claims, ok := GetClaimsFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	if err := h.service.Logout(r.Context(), claims); err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			respondError(w, "service temporarily unavailable", httputil.CodeServiceUnavailable, http.StatusServiceUnavailable)
			return
		}
		logger.Error("logout failed: internal error", "error", err.Error())
		respondError(w, "failed to logout", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged out successfully", "user_id", claims.UserID)

	respondJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

// Me returns the identity carried by the bearer token
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetClaimsFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	respondJSON(w, UserResponse{ID: claims.UserID, Email: claims.Email}, http.StatusOK)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

func respondUnauthorized(w http.ResponseWriter) {
	respondError(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
}

// failedLoginKey canonicalizes the submitted email so "A@x.com" and
// "a@x.com" share one failed-login budget, even when the address is invalid.
func failedLoginKey(raw string) string {
	if email, err := NormalizeEmail(raw); err == nil {
		return email
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

// getClientIP extracts the client IP address from the request. chi's RealIP
// middleware has already applied X-Forwarded-For and X-Real-IP to RemoteAddr.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
