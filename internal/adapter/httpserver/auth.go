package httpserver

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/forumpulse/internal/platform/errors"
)

// userIDKey holds the authenticated caller in the echo context.
const userIDKey = "userID"

var errMissingBearer = errors.New("missing bearer token")

// tokenVerifier validates HS256 bearer tokens. The subject claim is the caller identity.
type tokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func newTokenVerifier(secret, issuer string) *tokenVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &tokenVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

func (v *tokenVerifier) verify(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingBearer
	}

	var claims jwt.RegisteredClaims
	_, err := v.parser.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// requireAuth rejects requests without a valid bearer token and stores the caller
// under userIDKey.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := s.auth.verify(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="forumpulse"`)
			return apperrors.UnauthorizedError("missing or invalid bearer token").WithField("reason", err.Error())
		}

		c.Set(userIDKey, userID)
		return next(c)
	}
}

// SignToken issues an HS256 token for subject. Used by operators and tests to mint
// caller credentials.
func SignToken(secret, issuer, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
