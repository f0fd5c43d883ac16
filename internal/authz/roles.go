package authz

// Role identifiers. The table is fixed at compile time: the reference
// deployment runs with exactly these twenty roles and new ones are added
// here together with their permission footprint.
const (
	RoleAdministrador       = 1
	RoleDirector            = 2
	RoleGerente             = 3
	RoleQuimicoFarmaceutico = 4
	RoleContador            = 5
	RoleSupervisor          = 6
	RoleVendedor            = 7
	RoleCajero              = 8
	RoleAlmacenero          = 9
	RoleComprador           = 10
	RoleFacturador          = 11
	RoleAsistenteVentas     = 12
	RoleAuditor             = 13
	RoleTecnicoFarmacia     = 14
	RoleRecepcionista       = 15
	RolePracticante         = 16
	RoleConsultor           = 17
	RoleSoporte             = 18
	RoleInvitado            = 19
	RoleExterno             = 20
)

// UnknownRoleName is returned for any role id outside the table.
const UnknownRoleName = "UNKNOWN"

var roleNames = map[int]string{
	RoleAdministrador:       "ADMINISTRADOR",
	RoleDirector:            "DIRECTOR",
	RoleGerente:             "GERENTE",
	RoleQuimicoFarmaceutico: "QUIMICO_FARMACEUTICO",
	RoleContador:            "CONTADOR",
	RoleSupervisor:          "SUPERVISOR",
	RoleVendedor:            "VENDEDOR",
	RoleCajero:              "CAJERO",
	RoleAlmacenero:          "ALMACENERO",
	RoleComprador:           "COMPRADOR",
	RoleFacturador:          "FACTURADOR",
	RoleAsistenteVentas:     "ASISTENTE_VENTAS",
	RoleAuditor:             "AUDITOR",
	RoleTecnicoFarmacia:     "TECNICO_FARMACIA",
	RoleRecepcionista:       "RECEPCIONISTA",
	RolePracticante:         "PRACTICANTE",
	RoleConsultor:           "CONSULTOR",
	RoleSoporte:             "SOPORTE",
	RoleInvitado:            "INVITADO",
	RoleExterno:             "EXTERNO",
}

// RoleName returns the canonical name for a role id, or UnknownRoleName for
// zero, negative or unmapped ids.
func RoleName(roleID int) string {
	name, ok := roleNames[roleID]
	if !ok {
		return UnknownRoleName
	}
	return name
}

// IsAdmin reports whether the role is the system administrator.
func IsAdmin(roleID int) bool { return roleID == RoleAdministrador }

// IsDirector reports whether the role is the director.
func IsDirector(roleID int) bool { return roleID == RoleDirector }

// HasAdminPrivileges reports whether the role is administrator or director.
// These two roles bypass resource-ownership checks.
func HasAdminPrivileges(roleID int) bool { return IsAdmin(roleID) || IsDirector(roleID) }
