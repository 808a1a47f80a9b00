package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/authz"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
)

type AuthHandler struct {
	users     repository.UserRepository
	jwtSecret string
	logger    zerolog.Logger
}

func NewAuthHandler(users repository.UserRepository, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("handler", "auth").Logger(),
	}
}

type signupRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	FullName    string   `json:"full_name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	LocationID  *string  `json:"location_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	role := models.UserRole(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleFrontDesk
	}
	if !models.IsValidRole(role) {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "unknown role %q", req.Role))
		return
	}
	// Admin accounts are only minted through the access-update endpoint.
	if role == models.RoleAdmin {
		writeError(w, h.logger, apperr.E(apperr.KindValidation, "cannot sign up as admin"))
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Email, req.Password, req.FullName, role, req.Permissions, req.LocationID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"role":  string(user.Role),
		"perms": user.Permissions,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	if user.LocationID != nil {
		claims["loc"] = *user.LocationID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		writeError(w, h.logger, apperr.Wrap(err, apperr.KindInternal, "sign token"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": tokenString,
		"user":  user,
	})
}

// JWTMiddleware validates the bearer token and places the requester identity
// on the context for the gate and the scope resolver.
func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, h.logger, apperr.E(apperr.KindUnauthorized, "authorization header required"))
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, h.logger, apperr.E(apperr.KindUnauthorized, "invalid authorization format"))
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, h.logger, apperr.E(apperr.KindUnauthorized, "invalid token"))
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			writeError(w, h.logger, apperr.E(apperr.KindUnauthorized, "token expired"))
			return
		}

		ident, ok := identityFromClaims(claims)
		if !ok {
			writeError(w, h.logger, apperr.E(apperr.KindUnauthorized, "missing token claim"))
			return
		}
		next.ServeHTTP(w, r.WithContext(authz.WithIdentity(r.Context(), ident)))
	})
}

func identityFromClaims(claims jwt.MapClaims) (authz.Identity, bool) {
	userID, _ := claims["sub"].(string)
	roleStr, _ := claims["role"].(string)
	role := models.UserRole(roleStr)
	if userID == "" || !models.IsValidRole(role) {
		return authz.Identity{}, false
	}

	ident := authz.Identity{UserID: userID, Role: role}
	if raw, ok := claims["perms"].([]interface{}); ok {
		for _, val := range raw {
			if perm, ok := val.(string); ok {
				ident.Permissions = append(ident.Permissions, perm)
			}
		}
	}
	if loc, ok := claims["loc"].(string); ok && loc != "" {
		ident.LocationID = &loc
	}
	return ident, true
}
