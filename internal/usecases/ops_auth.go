package usecases

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// OpsAuthUsecase authenticates the ops dashboard operator. There is exactly
// one credential, taken from config; the password is held only as a bcrypt
// hash for the process lifetime.
type OpsAuthUsecase struct {
	username     string
	passwordHash []byte
	jwtSecret    []byte
}

func NewOpsAuthUsecase(username, password, secret string) (*OpsAuthUsecase, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash operator password: %w", err)
	}
	return &OpsAuthUsecase{
		username:     username,
		passwordHash: hashed,
		jwtSecret:    []byte(secret),
	}, nil
}

func (uc *OpsAuthUsecase) Login(username, password string) (string, error) {
	if username != uc.username {
		return "", errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(uc.passwordHash, []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a bearer token, returning the subject.
func (uc *OpsAuthUsecase) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return uc.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}
