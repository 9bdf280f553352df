package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// TokenRequest exchanges client credentials for a bearer token
type TokenRequest struct {
	ClientID     string `json:"client_id" validate:"required,max=128"`
	ClientSecret string `json:"client_secret" validate:"required,max=256"`
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// handleToken issues a JWT for a configured client.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.jwt == nil {
		s.writeError(w, &ErrAuthDisabled{})
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, &ErrBadRequest{Message: "invalid request body"})
		return
	}
	if err := validator.New().Struct(req); err != nil {
		s.writeError(w, &ErrBadRequest{Message: extractValidationErrors(err)})
		return
	}

	if !s.auth.Authenticate(req.ClientID, req.ClientSecret) {
		s.logger.Warn("token request rejected", zap.String("client_id", req.ClientID))
		s.writeError(w, &ErrInvalidCredentials{})
		return
	}

	token, expiresAt, err := s.jwt.GenerateToken(req.ClientID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("token issued", zap.String("client_id", req.ClientID), zap.Time("expires_at", expiresAt))
	s.jsonResponse(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		ExpiresAt:   expiresAt,
	})
}

// extractValidationErrors reports the first failed field.
func extractValidationErrors(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		ve := verrs[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return "validation error: invalid request"
}
