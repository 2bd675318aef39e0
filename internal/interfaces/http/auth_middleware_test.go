package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	apphttp "github.com/jhoicas/prestamos-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/prestamos-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret    = "test-secret-key-for-unit-tests"
	testUserID       = "00000000-0000-0000-0000-000000000001"
	testDepartmentID = "00000000-0000-0000-0000-000000000002"
	testIssuer       = "prestamos-api-test"
	testExpMin       = 60
)

// tokenForRole genera un JWT con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testDepartmentID, role, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de autenticación sobre el router real
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_SinAuthHeader_Retorna401(t *testing.T) {
	api := newAPI(t)
	resp, raw := api.do(t, call{method: http.MethodGet, path: "/api/borrow-requests/pending"})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(raw), "MISSING_TOKEN")
}

func TestRouter_TokenInvalido_Retorna401(t *testing.T) {
	api := newAPI(t)
	cases := []string{"Bearer token.invalido.aqui", "Basic abc", "Bearer "}
	for _, auth := range cases {
		t.Run(auth, func(t *testing.T) {
			resp, _ := api.do(t, call{method: http.MethodGet, path: "/api/me", auth: auth})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	resp, raw := api.do(t, call{method: http.MethodGet, path: "/api/me", auth: "Bearer token.invalido.aqui"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(raw), "INVALID_TOKEN")
}

func TestRouter_TokenSinRol_Retorna401(t *testing.T) {
	api := newAPI(t)
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testDepartmentID, "", testIssuer, testExpMin)
	require.NoError(t, err)

	resp, raw := api.do(t, call{method: http.MethodGet, path: "/api/borrow-requests/pending", auth: "Bearer " + tok})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "token sin rol debe retornar 401")
	assert.Contains(t, string(raw), "MISSING_ROLE")
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RequireCapability por ruta
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_CapacidadPorRol(t *testing.T) {
	api := newAPI(t)
	routes := []struct {
		name   string
		method string
		path   string
		body   string
		want   map[string]int
	}{
		{
			name:   "pendientes requiere aprobador",
			method: http.MethodGet,
			path:   "/api/borrow-requests/pending",
			want: map[string]int{
				entity.RoleAdmin:       http.StatusOK,
				entity.RoleAlmacen:     http.StatusOK,
				entity.RoleFuncionario: http.StatusForbidden,
				"visitante":            http.StatusForbidden,
			},
		},
		{
			name:   "verificación del libro requiere aprobador",
			method: http.MethodGet,
			path:   "/api/items/it-proj/ledger-check",
			want: map[string]int{
				entity.RoleAlmacen:     http.StatusOK,
				entity.RoleFuncionario: http.StatusForbidden,
			},
		},
		{
			name:   "ajuste manual requiere aprobador",
			method: http.MethodPost,
			path:   "/api/items/it-proj/adjustments",
			body:   `{"type":"IN","amount":1,"notes":"compra"}`,
			want: map[string]int{
				entity.RoleFuncionario: http.StatusForbidden,
			},
		},
		{
			name:   "solicitar requiere solicitante",
			method: http.MethodPost,
			path:   "/api/borrow-requests",
			body:   `{}`,
			want: map[string]int{
				entity.RoleAlmacen: http.StatusForbidden,
				"visitante":        http.StatusForbidden,
			},
		},
	}
	for _, rt := range routes {
		for role, want := range rt.want {
			t.Run(rt.name+"/"+role, func(t *testing.T) {
				resp, raw := api.do(t, call{method: rt.method, path: rt.path, auth: tokenForRole(t, role), body: rt.body})
				assert.Equal(t, want, resp.StatusCode, string(raw))
				if want == http.StatusForbidden {
					assert.Contains(t, string(raw), "FORBIDDEN")
				}
			})
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests AuthMiddleware: extracción de claims del token
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_ExtraeClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		p := apphttp.GetPrincipal(c)
		return c.JSON(fiber.Map{
			"user_id":       apphttp.GetUserID(c),
			"department_id": apphttp.GetDepartmentID(c),
			"role":          apphttp.GetRole(c),
			"approver":      p.Can(entity.CapabilityApprover),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, "almacen"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testDepartmentID, body["department_id"])
	assert.Equal(t, "almacen", body["role"])
	assert.Equal(t, true, body["approver"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests JWT pkg: integridad del generate/parse con role
// ──────────────────────────────────────────────────────────────────────────────

func TestJWT_GenerateAndParse_ConRole(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testDepartmentID, "almacen", testIssuer, testExpMin)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	userID, departmentID, role, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)

	assert.Equal(t, testUserID, userID)
	assert.Equal(t, testDepartmentID, departmentID)
	assert.Equal(t, "almacen", role)
}

func TestJWT_TokenExpirado_RetornaError(t *testing.T) {
	// Token con expiración -1 minuto (ya expirado)
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testDepartmentID, "admin", testIssuer, -1)
	require.NoError(t, err)

	_, _, _, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestJWT_SecretIncorrecto_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testDepartmentID, "admin", testIssuer, testExpMin)
	require.NoError(t, err)

	_, _, _, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err, "secret incorrecto debe invalidar el token")
}
