package ratelimit

import (
	"strconv"

	"farmapos.dev/internal/authz"
)

const (
	// DefaultQuotaPerMinute applies to authenticated identities whose role
	// is not in the table.
	DefaultQuotaPerMinute = 50
	// AnonymousQuotaPerMinute applies to unauthenticated clients, keyed by
	// their resolved IP address.
	AnonymousQuotaPerMinute = 20
)

// roleQuotas binds each role to its admission quota, requests per minute.
// The administrator role is explicitly unthrottled.
var roleQuotas = map[int]Quota{
	authz.RoleAdministrador:       Unlimited,
	authz.RoleDirector:            PerMinute(200),
	authz.RoleGerente:             PerMinute(150),
	authz.RoleQuimicoFarmaceutico: PerMinute(100),
	authz.RoleContador:            PerMinute(100),
	authz.RoleSupervisor:          PerMinute(100),
	authz.RoleVendedor:            PerMinute(80),
	authz.RoleCajero:              PerMinute(80),
	authz.RoleAlmacenero:          PerMinute(60),
	authz.RoleComprador:           PerMinute(80),
	authz.RoleFacturador:          PerMinute(60),
	authz.RoleAsistenteVentas:     PerMinute(50),
	authz.RoleAuditor:             PerMinute(100),
	authz.RoleTecnicoFarmacia:     PerMinute(80),
	authz.RoleRecepcionista:       PerMinute(60),
	authz.RolePracticante:         PerMinute(50),
	authz.RoleConsultor:           PerMinute(40),
	authz.RoleSoporte:             PerMinute(30),
	authz.RoleInvitado:            PerMinute(20),
	authz.RoleExterno:             PerMinute(10),
}

// QuotaForRole resolves the quota bound to a role, falling back to the
// default for unrecognized roles.
func QuotaForRole(roleID int) Quota {
	if q, ok := roleQuotas[roleID]; ok {
		return q
	}
	return PerMinute(DefaultQuotaPerMinute)
}

// AnonymousQuota is the fixed budget for unauthenticated clients.
func AnonymousQuota() Quota { return PerMinute(AnonymousQuotaPerMinute) }

// UserKey derives the bucket key for an authenticated subject.
func UserKey(userID int) string { return "user_" + strconv.Itoa(userID) }

// AnonymousKey derives the bucket key for an unauthenticated client address.
func AnonymousKey(ip string) string { return "anonymous_" + ip }
