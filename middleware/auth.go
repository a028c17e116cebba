package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/chess-escrow/models"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const walletContextKey contextKey = "caller_wallet"

var ErrNoCallerInContext = errors.New("caller wallet not found in context")

// GenerateToken выпускает JWT с кошельком пользователя в claims.
func GenerateToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"wallet":   user.Wallet,
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Authenticate проверяет Bearer-токен и кладёт кошелёк вызывающего в
// контекст запроса. Сервисы получают кошелёк явным параметром — слой
// HTTP лишь извлекает его из токена.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			wallet, ok := claims["wallet"].(string)
			if !ok || wallet == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), walletContextKey, wallet)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetWalletFromContext достаёт кошелёк вызывающего из контекста запроса.
func GetWalletFromContext(ctx context.Context) (string, error) {
	wallet, ok := ctx.Value(walletContextKey).(string)
	if !ok || wallet == "" {
		return "", ErrNoCallerInContext
	}
	return wallet, nil
}
