package entity

import "time"

// Roles válidos para User (los emite el proveedor de autenticación externo).
const (
	RoleAdmin       = "admin"       // administrador: solicita y aprueba
	RoleAlmacen     = "almacen"     // encargado de almacén: aprueba y recibe devoluciones
	RoleFuncionario = "funcionario" // personal: solicita préstamos
)

// Capacidades que el núcleo verifica en cada transición.
const (
	CapabilityRequester = "requester"
	CapabilityApprover  = "approver"
)

// User es dato maestro de solo lectura (personal de la institución).
type User struct {
	ID             string
	EmployeeNumber string
	Name           string
	Email          string
	Role           string
	DepartmentID   string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Department es dato maestro de solo lectura.
type Department struct {
	ID   string
	Name string
}

// Principal es el actor ya autenticado que invoca al núcleo.
type Principal struct {
	UserID       string
	DepartmentID string
	Role         string
	Capabilities []string
}

// CapabilitiesForRole traduce el rol del token a capacidades del núcleo.
func CapabilitiesForRole(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{CapabilityRequester, CapabilityApprover}
	case RoleAlmacen:
		return []string{CapabilityApprover}
	case RoleFuncionario:
		return []string{CapabilityRequester}
	default:
		return nil
	}
}

// NewPrincipal construye el principal con las capacidades del rol.
func NewPrincipal(userID, departmentID, role string) Principal {
	return Principal{
		UserID:       userID,
		DepartmentID: departmentID,
		Role:         role,
		Capabilities: CapabilitiesForRole(role),
	}
}

// Can indica si el principal tiene la capacidad indicada.
func (p Principal) Can(capability string) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
