package helpers

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager signs and validates session tokens with a single server secret.
type JWTManager struct {
	Secret []byte
	TTL    time.Duration
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTManager{Secret: []byte(secret), TTL: ttl}
}

// Claims is the session payload. It carries the privacy flags so other
// services can read them without a store round trip.
type Claims struct {
	UsuarioID       int64  `json:"usuarioId"`
	DNI             string `json:"dni"`
	ProfilePrivate  bool   `json:"profilePrivate"`
	ShowPublicName  bool   `json:"showPublicName"`
	ShowPublicVotes bool   `json:"showPublicVotes"`
	jwt.RegisteredClaims
}

func (m *JWTManager) Generate(c Claims) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.TTL)
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(c.UsuarioID, 10),
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &c)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

// Parse checks signature and expiry only.
func (m *JWTManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
