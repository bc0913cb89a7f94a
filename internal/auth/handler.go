package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cafe-pos/internal/database"
	"cafe-pos/internal/httpapi"
	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/logger"
)

// Require rejects requests without a valid bearer token for one of roles.
// Websocket clients may pass the token as the "token" query parameter.
func Require(tokens *Tokens, roles ...lifecycle.Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := httpapi.RequestID(r.Context())

			raw := bearerToken(r)
			if raw == "" {
				httpapi.WriteError(w, http.StatusUnauthorized, "missing or invalid token", requestID)
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				httpapi.WriteError(w, http.StatusUnauthorized, err.Error(), requestID)
				return
			}
			if !allowed(claims.Role, roles) {
				httpapi.WriteError(w, http.StatusForbidden, "forbidden", requestID)
				return
			}

			ctx := withActor(r.Context(), Actor{UserID: claims.UserID, Username: claims.Username, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

func allowed(role lifecycle.Actor, roles []lifecycle.Actor) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// Handler serves the login endpoint.
type Handler struct {
	users  UserStore
	tokens *Tokens
	logger *logger.Logger
}

func NewHandler(users UserStore, tokens *Tokens, log *logger.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	Role      lifecycle.Actor `json:"role"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	var req loginRequest
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	token, role, expires, err := h.authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Warn("login_failed", "Rejected staff login", requestID, map[string]interface{}{
				"username": req.Username,
			})
			httpapi.WriteError(w, http.StatusUnauthorized, err.Error(), requestID)
			return
		}
		h.logger.Error("login_failed", "Failed to authenticate staff user", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.logger.Info("login_succeeded", "Staff user logged in", requestID, map[string]interface{}{
		"username": req.Username,
		"role":     string(role),
	})
	_ = httpapi.WriteJSON(w, http.StatusOK, loginResponse{Token: token, Role: role, ExpiresAt: expires})
}

var (
	comparePassword = CheckPassword
	dummyHash       = sync.OnceValue(func() string {
		hashed, _ := HashPassword("no-such-staff-account")
		return hashed
	})
)

func (h *Handler) authenticate(ctx context.Context, username, password string) (string, lifecycle.Actor, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", "", time.Time{}, ErrInvalidCredentials
	}

	user, err := h.users.FindByUsername(ctx, username)
	if err != nil {
		return "", "", time.Time{}, err
	}
	if user == nil {
		// same bcrypt cost as a real account so response time does not reveal usernames
		comparePassword(password, dummyHash())
		return "", "", time.Time{}, ErrInvalidCredentials
	}
	if !comparePassword(password, user.PasswordHash) {
		return "", "", time.Time{}, ErrInvalidCredentials
	}

	token, expires, err := h.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, user.Role, expires, nil
}

// PostgresUsers reads staff_users.
type PostgresUsers struct {
	pool *pgxpool.Pool
}

func NewPostgresUsers(pool *pgxpool.Pool) *PostgresUsers {
	return &PostgresUsers{pool: pool}
}

// FindByUsername returns nil without error when no account matches.
func (s *PostgresUsers) FindByUsername(ctx context.Context, username string) (*StaffUser, error) {
	var (
		u    StaffUser
		role string
	)
	err := s.pool.QueryRow(ctx, database.GetStaffByUsernameSQL, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load staff user: %w", err)
	}
	u.Role = lifecycle.Actor(role)
	return &u, nil
}

// Upsert creates or updates an account; used to seed the first staff login.
func (s *PostgresUsers) Upsert(ctx context.Context, username, password string, role lifecycle.Actor) error {
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	var id string
	if err := s.pool.QueryRow(ctx, database.InsertStaffSQL, username, hashed, string(role)).Scan(&id); err != nil {
		return fmt.Errorf("failed to upsert staff user %s: %w", username, err)
	}
	return nil
}
