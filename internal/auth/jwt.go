package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrTokenMismatch = errors.New("token was issued for another user or room")
)

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	RoomID string `json:"room_id"`
	jwt.RegisteredClaims
}

// JWTService issues and checks the tokens that let a user rejoin a
// password protected room without sending the password again.
type JWTService struct {
	secretKey   []byte
	tokenExpiry time.Duration
	now         func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, tokenExpiry time.Duration) *JWTService {
	return &JWTService{
		secretKey:   []byte(secretKey),
		tokenExpiry: tokenExpiry,
		now:         time.Now,
	}
}

// GenerateRoomToken creates a token binding userID to roomID.
func (s *JWTService) GenerateRoomToken(userID, roomID string) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.tokenExpiry)

	claims := Claims{
		UserID: userID,
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Subject:   userID,
			Audience:  jwt.ClaimStrings{roomID},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ValidateRoomToken validates a token and checks it belongs to userID and roomID.
func (s *JWTService) ValidateRoomToken(tokenString, userID, roomID string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID != userID || claims.RoomID != roomID {
		return nil, ErrTokenMismatch
	}

	return claims, nil
}

// Issue is GenerateRoomToken without the expiry.
func (s *JWTService) Issue(userID, roomID string) (string, error) {
	token, _, err := s.GenerateRoomToken(userID, roomID)
	return token, err
}

// Validate is ValidateRoomToken without the claims.
func (s *JWTService) Validate(tokenString, userID, roomID string) error {
	_, err := s.ValidateRoomToken(tokenString, userID, roomID)
	return err
}

// GetTokenExpiry returns the token expiry duration
func (s *JWTService) GetTokenExpiry() time.Duration {
	return s.tokenExpiry
}
