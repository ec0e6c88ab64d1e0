package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// LoginHandler exchanges the configured password for a bearer token
type LoginHandler struct {
	password string
	secret   []byte
	expiry   time.Duration
	logger   *logrus.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(password string, secret []byte, expiry time.Duration, logger *logrus.Logger) *LoginHandler {
	return &LoginHandler{
		password: password,
		secret:   secret,
		expiry:   expiry,
		logger:   logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ServeHTTP handles the login endpoint
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		h.logger.WithField("remote_addr", r.RemoteAddr).Warn("Failed login attempt")
		writeError(w, http.StatusUnauthorized, "invalid password", nil)
		return
	}

	expiresAt := time.Now().Add(h.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(h.secret)
	if err != nil {
		h.logger.WithError(err).Error("Failed to sign token")
		writeError(w, http.StatusInternalServerError, "failed to issue token", err)
		return
	}

	writeSuccess(w, "logged in", loginResponse{Token: signed, ExpiresAt: expiresAt})
}
