package authz

import "slices"

// Category identifies one guarded operation family. Handlers ask the gate for
// a category instead of hard-coding role checks, so the whole access matrix
// lives in this file and can be audited in one place.
type Category string

const (
	ProductsRead    Category = "productos.leer"
	ProductsWrite   Category = "productos.escribir"
	ProductsDelete  Category = "productos.eliminar"
	SalesRead       Category = "ventas.leer"
	SalesCreate     Category = "ventas.crear"
	SalesCancel     Category = "ventas.anular"
	PurchasesRead   Category = "compras.leer"
	PurchasesCreate Category = "compras.crear"
	ClientsRead     Category = "clientes.leer"
	ClientsWrite    Category = "clientes.escribir"
	SuppliersRead   Category = "proveedores.leer"
	SuppliersWrite  Category = "proveedores.escribir"
	ReportsView     Category = "reportes.ver"
	UsersManage     Category = "usuarios.gestionar"
	RolesManage     Category = "roles.gestionar"
)

// permissionTable maps each operation category to the roles allowed to
// perform it. Immutable after process start; lookups need no locking.
var permissionTable = map[Category][]int{
	ProductsRead: {
		RoleAdministrador, RoleDirector, RoleGerente, RoleQuimicoFarmaceutico,
		RoleSupervisor, RoleVendedor, RoleCajero, RoleAlmacenero, RoleComprador,
		RoleAsistenteVentas, RoleAuditor, RoleTecnicoFarmacia, RoleRecepcionista,
		RolePracticante, RoleConsultor,
	},
	ProductsWrite: {
		RoleAdministrador, RoleDirector, RoleGerente, RoleQuimicoFarmaceutico,
		RoleAlmacenero, RoleComprador, RoleTecnicoFarmacia,
	},
	ProductsDelete: {RoleAdministrador, RoleDirector, RoleGerente},
	SalesRead: {
		RoleAdministrador, RoleDirector, RoleGerente, RoleContador, RoleSupervisor,
		RoleVendedor, RoleCajero, RoleFacturador, RoleAsistenteVentas, RoleAuditor,
		RoleConsultor,
	},
	SalesCreate: {
		RoleAdministrador, RoleDirector, RoleGerente, RoleSupervisor, RoleVendedor,
		RoleCajero, RoleFacturador, RoleAsistenteVentas,
	},
	SalesCancel: {RoleAdministrador, RoleDirector, RoleGerente, RoleSupervisor},
	PurchasesRead: {
		RoleAdministrador, RoleDirector, RoleGerente, RoleContador, RoleAlmacenero,
		RoleComprador, RoleAuditor, RoleConsultor,
	},
	PurchasesCreate: {RoleAdministrador, RoleDirector, RoleGerente, RoleComprador},
	ClientsRead: {
		RoleAdministrador, RoleDirector, RoleGerente, RoleSupervisor, RoleVendedor,
		RoleCajero, RoleFacturador, RoleAsistenteVentas, RoleRecepcionista,
	},
	ClientsWrite: {
		RoleAdministrador, RoleDirector, RoleGerente, RoleVendedor,
		RoleAsistenteVentas, RoleRecepcionista,
	},
	SuppliersRead: {
		RoleAdministrador, RoleDirector, RoleGerente, RoleContador, RoleAlmacenero,
		RoleComprador, RoleAuditor,
	},
	SuppliersWrite: {RoleAdministrador, RoleDirector, RoleGerente, RoleComprador},
	ReportsView: {
		RoleAdministrador, RoleDirector, RoleGerente, RoleContador, RoleAuditor,
		RoleConsultor,
	},
	UsersManage: {RoleAdministrador, RoleDirector},
	RolesManage: {RoleAdministrador},
}

// AllowedRoles returns a copy of the role set authorized for a category.
func AllowedRoles(cat Category) []int {
	roles := permissionTable[cat]
	if len(roles) == 0 {
		return nil
	}
	return slices.Clone(roles)
}

// HasPermission reports whether roleID is a member of the allowed set.
// A missing role id or an empty set is never a match.
func HasPermission(roleID int, allowed []int) bool {
	if roleID <= 0 || len(allowed) == 0 {
		return false
	}
	return slices.Contains(allowed, roleID)
}

// Can reports whether the role may perform the given operation category.
func Can(roleID int, cat Category) bool {
	return HasPermission(roleID, permissionTable[cat])
}
