package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
)

// =============================================================================
// Token Test Suite
// =============================================================================

type TokenSuite struct {
	suite.Suite
	now     time.Time
	service *JWTService
	userID  id.UserID
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func (s *TokenSuite) SetupTest() {
	s.now = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	s.service = NewJWTService("test-signing-key", "dossier-test")
	s.service.now = func() time.Time { return s.now }
	s.userID = id.NewUserID()
}

func (s *TokenSuite) mint(role string, ttl time.Duration) string {
	token, err := s.service.GenerateAccessToken(s.userID, role, ttl)
	s.Require().NoError(err)
	return token
}

// =============================================================================
// Issue and validate
// =============================================================================

func (s *TokenSuite) TestRoundTrip() {
	claims, err := s.service.ValidateToken(s.mint("admin", time.Hour))
	s.Require().NoError(err)
	s.Equal(s.userID.String(), claims.UserID)
	s.Equal(s.userID.String(), claims.Subject)
	s.Equal("admin", claims.Role)
	s.Equal("dossier-test", claims.Issuer)
	s.NotEmpty(claims.ID)
	s.Equal(s.now.Add(time.Hour), claims.ExpiresAt.Time)
}

func (s *TokenSuite) TestExpiry() {
	token := s.mint("employee", time.Hour)

	s.now = s.now.Add(2 * time.Hour)
	_, err := s.service.ValidateToken(token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.ErrorContains(err, "token has expired")
}

func (s *TokenSuite) TestRejected() {
	foreignKey := NewJWTService("other-key", "dossier-test")
	foreignIssuer := NewJWTService("test-signing-key", "someone-else")
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: s.userID.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "not-a-uuid",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "dossier-test"},
	}).SignedString([]byte("test-signing-key"))
	s.Require().NoError(err)

	cases := map[string]func() string{
		"garbage":          func() string { return "invalid-token-string" },
		"foreign key":      func() string { t, _ := foreignKey.GenerateAccessToken(s.userID, "admin", time.Hour); return t },
		"foreign issuer":   func() string { t, _ := foreignIssuer.GenerateAccessToken(s.userID, "admin", time.Hour); return t },
		"unsigned":         func() string { return noneAlg },
		"non uuid subject": func() string { return badSubject },
	}
	for name, token := range cases {
		s.Run(name, func() {
			_, err := s.service.ValidateToken(token())
			s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "got %v", err)
		})
	}
}

// =============================================================================
// Middleware validator
// =============================================================================

func (s *TokenSuite) TestValidator() {
	claims, err := s.service.Validator().ValidateToken(s.mint("employee", time.Hour))
	s.Require().NoError(err)
	s.Equal(s.userID.String(), claims.UserID)
	s.Equal("employee", claims.Role)
	s.NotEmpty(claims.JTI)

	_, err = s.service.Validator().ValidateToken("nope")
	s.Error(err)
}
