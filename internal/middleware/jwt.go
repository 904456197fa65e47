package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/dismissal-api/internal/utils"
)

// AccessTokenQuery carries a staff token on websocket upgrades, where
// browsers cannot set an Authorization header.
const AccessTokenQuery = "access_token"

var (
	errAuthorizationMissing = errors.New("인증 정보가 없습니다.")
	errAuthorizationHeader  = errors.New("인증 헤더 형식이 올바르지 않습니다.")
	errInvalidToken         = errors.New("유효하지 않은 토큰입니다.")
)

// JWTProtected validates HS256 bearer tokens issued by the staff gate and
// exposes the subject and role as user_id and user_role locals.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		if err := applyStaffClaims(c, secret, tokenString); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		return c.Next()
	}
}

// OptionalJWT lets anonymous requests through and authenticates the rest.
// A token is read from the Authorization header or the access_token query;
// one that is present but invalid is rejected rather than ignored.
func OptionalJWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		switch {
		case errors.Is(err, errAuthorizationMissing):
			tokenString = strings.TrimSpace(c.Query(AccessTokenQuery))
			if tokenString == "" {
				return c.Next()
			}
		case err != nil:
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		if err := applyStaffClaims(c, secret, tokenString); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authorization := c.Get(fiber.HeaderAuthorization)
	if authorization == "" {
		return "", errAuthorizationMissing
	}

	const bearer = "Bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return "", errAuthorizationHeader
	}

	tokenString := strings.TrimSpace(authorization[len(bearer):])
	if tokenString == "" {
		return "", errInvalidToken
	}
	return tokenString, nil
}

func applyStaffClaims(c *fiber.Ctx, secret, tokenString string) error {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return errInvalidToken
	}

	if subject, err := claims.GetSubject(); err == nil && subject != "" {
		c.Locals("user_id", subject)
	}
	if role := normalizeRoleValue(claims["role"]); role != "" {
		c.Locals("user_role", role)
	}
	return nil
}
