package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/dismissal-api/internal/utils"
)

// Roles understood by the API.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// ForbiddenMessage answers authenticated callers without the needed role.
const ForbiddenMessage = "교사만 사용할 수 있는 기능입니다."

// RequireRole rejects requests whose user_role is not one of roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := roleSet(roles)
	return func(c *fiber.Ctx) error {
		if _, ok := allowed[normalizeRoleValue(c.Locals("user_role"))]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, ForbiddenMessage)
		}
		return c.Next()
	}
}

// HasRole reports whether the request was authenticated with one of roles.
// Anonymous requests have no role.
func HasRole(c *fiber.Ctx, roles ...string) bool {
	role := normalizeRoleValue(c.Locals("user_role"))
	if role == "" {
		return false
	}
	_, ok := roleSet(roles)[role]
	return ok
}

func roleSet(roles []string) map[string]struct{} {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}
	return allowed
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
