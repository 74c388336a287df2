package authz

const (
	// Глобальные
	Superuser = "superuser"

	// Открытые заказы
	OpenOrdersView   = "open_orders:view"
	OpenOrdersImport = "open_orders:import"
	OpenOrdersExport = "open_orders:export"
)

// Роли, создаваемые сидером.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleViewer   = "viewer"
	EmergencyUID = "emergency-admin"
)

// AllPermissions - все права с описаниями, для сидера.
var AllPermissions = map[string]string{
	Superuser:        "Полный доступ",
	OpenOrdersView:   "Просмотр открытых заказов",
	OpenOrdersImport: "Загрузка выгрузки открытых заказов",
	OpenOrdersExport: "Экспорт открытых заказов в Excel",
}

// RolePermissions - права по ролям по умолчанию.
var RolePermissions = map[string][]string{
	RoleAdmin:   {Superuser, OpenOrdersView, OpenOrdersImport, OpenOrdersExport},
	RoleManager: {OpenOrdersView, OpenOrdersImport, OpenOrdersExport},
	RoleViewer:  {OpenOrdersView},
}
