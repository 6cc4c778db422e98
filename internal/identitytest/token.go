package identitytest

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "goguard-identitytest"

type accessClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *Server) signAccess(userID, sid string, now time.Time) (string, error) {
	claims := accessClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) parseAccess(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" || claims.SID == "" {
		return nil, errors.New("invalid access token")
	}
	return claims, nil
}
