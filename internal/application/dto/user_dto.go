package dto

// UserResponse salida del usuario autenticado: claims del token más datos maestros.
type UserResponse struct {
	ID             string   `json:"id"`
	EmployeeNumber string   `json:"employee_number,omitempty"`
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	Role           string   `json:"role"`
	DepartmentID   string   `json:"department_id"`
	DepartmentName string   `json:"department_name,omitempty"`
	Capabilities   []string `json:"capabilities"`
}
