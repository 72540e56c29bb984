package middleware

import (
	"errors"
	"strings"

	"dinq_match/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	userIDKey    = "user_id"
	bearerPrefix = "Bearer "
)

var (
	jwtSecret []byte

	errAuthNotInitialized = errors.New("auth not initialized")
	errMissingBearer      = errors.New("missing bearer token")

	hmacMethods = []string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}
)

// InitAuth 设置签名密钥，空字符串会让所有 token 校验失败
func InitAuth(secret string) {
	jwtSecret = []byte(secret)
}

// Claims 由账号服务签发，sub 以外只关心 user_id
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthMiddleware 校验 Authorization: Bearer <jwt>，通过后把 profile id 写入上下文
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			utils.Unauthorized(c, err.Error())
			return
		}

		userID, err := ValidateToken(raw)
		if err != nil {
			utils.Unauthorized(c, "invalid token")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errMissingBearer
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}

// ValidateToken 解析 HMAC 签名的 token 并返回其中的 profile id
func ValidateToken(tokenString string) (uuid.UUID, error) {
	if len(jwtSecret) == 0 {
		return uuid.Nil, errAuthNotInitialized
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods(hmacMethods))
	if err != nil {
		return uuid.Nil, err
	}
	if claims.UserID == uuid.Nil {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}
	return claims.UserID, nil
}

// GetUserID 读取 AuthMiddleware 写入的 profile id
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := c.Value(userIDKey).(uuid.UUID)
	return userID, ok
}
