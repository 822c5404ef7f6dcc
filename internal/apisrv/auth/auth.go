// Package auth implements the admin authentication server: login, admin
// account management and the auth middleware guarding the admin API.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/simpledough/dough-manager/internal/apisrv/respond"
	"github.com/simpledough/dough-manager/internal/auth/jwt"
	"github.com/simpledough/dough-manager/internal/auth/pwhash"
	"github.com/simpledough/dough-manager/internal/dependency"
)

// AuthHeaderKey is the header carrying the bearer token.
const AuthHeaderKey = "Authorization"

// Server implements the auth service.
type Server struct {
	adminRepository dependency.Admin
	pwhash          *pwhash.PasswordHasher
	JwtAuth         *jwtauth.JWTAuth
	jwtTTL          time.Duration
	c               *Config
	masterHash      string
}

// Config contains the configuration for the auth server.
type Config struct {
	JWTSecret              string `mapstructure:"jwtSecret"`
	MasterPassword         string `mapstructure:"masterPassword"`
	PasswordHasherSaltSize int    `mapstructure:"passwordHasherSaltSize"`
	JWTTTL                 string `mapstructure:"jwtttl"`
}

// New creates a new auth server.
func New(c *Config, ar dependency.Admin) (*Server, error) {
	if c.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is not set")
	}
	if c.MasterPassword == "" {
		return nil, fmt.Errorf("master password is not set")
	}

	ph := pwhash.New(&pwhash.PasswordHasher{SaltSize: c.PasswordHasherSaltSize})
	hash, err := ph.HashPassword(c.MasterPassword)
	if err != nil {
		return nil, err
	}

	ttl, err := time.ParseDuration(c.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid jwt ttl: %w", err)
	}

	return &Server{
		adminRepository: ar,
		pwhash:          ph,
		JwtAuth:         jwtauth.New("HS256", []byte(c.JWTSecret), nil),
		c:               c,
		jwtTTL:          ttl,
		masterHash:      hash,
	}, nil
}

// Handler returns the auth routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/login", s.handleLogin)
	r.Post("/create", s.handleCreate)
	r.Post("/delete", s.handleDelete)
	r.Post("/change-password", s.handleChangePassword)
	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AuthToken string `json:"authToken"`
}

// handleLogin issues an auth token for a valid username and password pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	username := strings.ToLower(req.Username)

	pwHash, err := s.adminRepository.PasswordHashByUsername(r.Context(), username)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if !s.pwhash.Validate(req.Password, pwHash) {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	token, err := jwt.NewTokenWithSubject(s.JwtAuth, s.jwtTTL, username)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't issue token")
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse{AuthToken: token})
}

type createRequest struct {
	MasterPassword string `json:"masterPassword"`
	Username       string `json:"username"`
	Password       string `json:"password"`
}

// handleCreate creates a new admin account; requires the master password.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if !s.pwhash.Validate(req.MasterPassword, s.masterHash) {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	username := strings.ToLower(req.Username)

	pwHash, err := s.pwhash.HashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't hash password")
		return
	}
	if err := s.adminRepository.AddAdmin(r.Context(), username, pwHash); err != nil {
		respond.Error(w, http.StatusConflict, err.Error())
		return
	}

	token, err := jwt.NewTokenWithSubject(s.JwtAuth, s.jwtTTL, username)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't issue token")
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse{AuthToken: token})
}

type deleteRequest struct {
	MasterPassword string `json:"masterPassword"`
	Username       string `json:"username"`
}

// handleDelete removes an admin account; requires the master password.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if !s.pwhash.Validate(req.MasterPassword, s.masterHash) {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err := s.adminRepository.DeleteAdmin(r.Context(), strings.ToLower(req.Username)); err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, nil)
}

type changePasswordRequest struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// handleChangePassword changes an admin password. The current password or
// the master password must be provided.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	username := strings.ToLower(req.Username)

	currentHash, err := s.adminRepository.PasswordHashByUsername(r.Context(), username)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if !s.pwhash.Validate(req.CurrentPassword, s.masterHash) &&
		!s.pwhash.Validate(req.CurrentPassword, currentHash) {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	newHash, err := s.pwhash.HashPassword(req.NewPassword)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't hash password")
		return
	}
	if err := s.adminRepository.ChangePassword(r.Context(), username, newHash); err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := jwt.NewTokenWithSubject(s.JwtAuth, s.jwtTTL, username)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't issue token")
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse{AuthToken: token})
}

// WithAuth middleware checks if the request carries a valid admin token.
func (s *Server) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get(AuthHeaderKey), "Bearer ")
		if _, err := jwt.VerifyToken(s.JwtAuth, token); err != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
