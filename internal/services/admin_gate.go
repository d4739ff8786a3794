package services

import (
	"strings"

	"configurator/internal/models"
)

// AdminState is a step of the admin access check.
type AdminState int

const (
	AdminUnauthenticated AdminState = iota
	AdminChecking
	AdminGranted
	AdminDenied
)

func (s AdminState) String() string {
	switch s {
	case AdminUnauthenticated:
		return "unauthenticated"
	case AdminChecking:
		return "checking"
	case AdminGranted:
		return "granted"
	case AdminDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// AdminGate decides admin access from a verified session. There is exactly
// one designated admin identity.
type AdminGate struct {
	adminEmail string
}

// NewAdminGate creates a gate for the designated admin email.
func NewAdminGate(adminEmail string) *AdminGate {
	return &AdminGate{adminEmail: strings.ToLower(strings.TrimSpace(adminEmail))}
}

// IsAdminEmail reports whether email is the designated admin identity.
func (g *AdminGate) IsAdminEmail(email string) bool {
	return g.adminEmail != "" && strings.ToLower(strings.TrimSpace(email)) == g.adminEmail
}

// Check walks Unauthenticated -> Checking -> Granted|Denied. Access needs the
// signed is_admin claim, which only AdminLogin issues, on a session for the
// admin identity. A denial is final for the request.
func (g *AdminGate) Check(session *models.Session) AdminState {
	if session == nil || session.UserID == "" {
		return AdminUnauthenticated
	}
	if session.IsAdmin && g.IsAdminEmail(session.Email) {
		return AdminGranted
	}
	return AdminDenied
}
