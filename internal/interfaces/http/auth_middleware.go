package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/prestamos-api/internal/application/dto"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/pkg/jwt"
)

// Locals keys para los claims del token en Fiber.
const (
	LocalUserID       = "user_id"
	LocalDepartmentID = "department_id"
	LocalRole         = "role"
)

// AuthMiddleware valida el Bearer Token JWT y extrae user_id, department_id y role a c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		userID, departmentID, role, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalDepartmentID, departmentID)
		c.Locals(LocalRole, role)
		return c.Next()
	}
}

// RequireCapability deja pasar solo si el rol del token otorga la capacidad.
// Token sin rol: 401 MISSING_ROLE. Rol sin la capacidad: 403 FORBIDDEN.
func RequireCapability(capability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetRole(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no contiene rol"})
		}
		if !GetPrincipal(c).Can(capability) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin acceso a este recurso"})
		}
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	return localString(c, LocalUserID)
}

// GetDepartmentID devuelve el DepartmentID del contexto (después del middleware de auth).
func GetDepartmentID(c *fiber.Ctx) string {
	return localString(c, LocalDepartmentID)
}

// GetRole devuelve el rol del token.
func GetRole(c *fiber.Ctx) string {
	return localString(c, LocalRole)
}

// GetPrincipal arma el actor del núcleo a partir de los claims.
func GetPrincipal(c *fiber.Ctx) entity.Principal {
	return entity.NewPrincipal(GetUserID(c), GetDepartmentID(c), GetRole(c))
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
