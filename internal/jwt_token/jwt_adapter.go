package jwttoken

import (
	authmw "dossier/pkg/platform/middleware/auth"
)

// middlewareValidator narrows JWTService to the claims the auth middleware
// reads, keeping the jwt library out of pkg/platform.
type middlewareValidator struct {
	service *JWTService
}

// Validator returns the service as the auth middleware's validator.
func (s *JWTService) Validator() authmw.JWTValidator {
	return middlewareValidator{service: s}
}

func (v middlewareValidator) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{UserID: claims.UserID, Role: claims.Role, JTI: claims.ID}, nil
}
