package auth

import "slices"

// Role del principal que registra o decide sobre la medicación.
type Role string

const (
	RoleClinician Role = "CLINICIAN"
	RoleCaregiver Role = "CAREGIVER"
	RoleSystem    Role = "EXTERNAL_SYSTEM"
)

// Claims del token. PatientIDs acota a un caregiver a sus pacientes
// asignados; para los demás roles no se usa.
type Claims struct {
	UserID     string
	Email      string
	TenantID   string
	Role       Role
	PatientIDs []string
}

// CanAccessPatient: un caregiver solo ve a sus pacientes. Sin rol cuenta
// como clinician.
func (c Claims) CanAccessPatient(patientID string) bool {
	if c.Role != RoleCaregiver {
		return true
	}
	return slices.Contains(c.PatientIDs, patientID)
}
