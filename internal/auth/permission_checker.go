package auth

// Permission names stored in an employee's permission map.
const (
	PermManageUsers       = "manage_users"
	PermManageEmployees   = "manage_employees"
	PermManageMachines    = "manage_machines"
	PermManageParts       = "manage_parts"
	PermManageTasks       = "manage_tasks"
	PermViewReports       = "view_reports"
	PermCreateManagers    = "create_managers"
	PermAssignPermissions = "assign_permissions"
	PermAssignTasks       = "assign_tasks"
	PermViewTasks         = "view_tasks"
	PermUpdateTaskStatus  = "update_task_status"
	PermViewParts         = "view_parts"
)

// AllPermissions is the catalogue seeded into the permissions table.
var AllPermissions = map[string]string{
	PermManageUsers:       "Create and manage system users",
	PermManageEmployees:   "Create and edit employee records",
	PermManageMachines:    "Create, edit and delete machines",
	PermManageParts:       "Create, edit and delete parts",
	PermManageTasks:       "Create, edit and delete tasks",
	PermViewReports:       "View reports and dashboards",
	PermCreateManagers:    "Create employees with the Manager role",
	PermAssignPermissions: "Grant or revoke permissions",
	PermAssignTasks:       "Assign tasks to employees",
	PermViewTasks:         "View assigned tasks",
	PermUpdateTaskStatus:  "Update the status of assigned tasks",
	PermViewParts:         "View the parts inventory",
}

type Resource string

const (
	ResourceUsers     Resource = "users"
	ResourceEmployees Resource = "employees"
	ResourceMachines  Resource = "machines"
	ResourceParts     Resource = "parts"
	ResourceTasks     Resource = "tasks"
	ResourceReports   Resource = "reports"
)

var resourcePermission = map[Resource]string{
	ResourceUsers:     PermManageUsers,
	ResourceEmployees: PermManageEmployees,
	ResourceMachines:  PermManageMachines,
	ResourceParts:     PermManageParts,
	ResourceTasks:     PermManageTasks,
	ResourceReports:   PermViewReports,
}

// Managers administer people and work, not physical plant or system users.
var managerResources = map[Resource]bool{
	ResourceEmployees: true,
	ResourceParts:     true,
	ResourceTasks:     true,
	ResourceReports:   true,
}

type PermissionChecker interface {
	HasPermission(p *Principal, permission string) bool
	CanManage(p *Principal, resource Resource) bool
	MeetsRole(p *Principal, required Role) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasPermission(p *Principal, permission string) bool {
	return HasPermission(p, permission)
}

func (c *DefaultPermissionChecker) CanManage(p *Principal, resource Resource) bool {
	return CanManage(p, resource)
}

func (c *DefaultPermissionChecker) MeetsRole(p *Principal, required Role) bool {
	return MeetsRole(p, required)
}

// HasPermission is true for every Admin, otherwise only for permissions explicitly granted.
func HasPermission(p *Principal, permission string) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleAdmin {
		return true
	}
	return p.Permissions[permission]
}

func CanManage(p *Principal, resource Resource) bool {
	if p == nil {
		return false
	}
	perm, ok := resourcePermission[resource]
	if !ok {
		return false
	}
	if HasPermission(p, perm) {
		return true
	}
	return p.Role == RoleManager && managerResources[resource]
}

func CanManageUsers(p *Principal) bool     { return CanManage(p, ResourceUsers) }
func CanManageEmployees(p *Principal) bool { return CanManage(p, ResourceEmployees) }
func CanManageMachines(p *Principal) bool  { return CanManage(p, ResourceMachines) }
func CanManageParts(p *Principal) bool     { return CanManage(p, ResourceParts) }
func CanManageTasks(p *Principal) bool     { return CanManage(p, ResourceTasks) }
func CanViewReports(p *Principal) bool     { return CanManage(p, ResourceReports) }

// MeetsRole is the route gate: the principal's role must sit at or above required.
func MeetsRole(p *Principal, required Role) bool {
	if p == nil || !required.Valid() {
		return false
	}
	level := p.Role.Level()
	return level > 0 && level >= required.Level()
}

// Capabilities lists the resolved capability flags, used by /users/me.
func Capabilities(p *Principal) map[string]bool {
	return map[string]bool{
		"can_manage_users":     CanManageUsers(p),
		"can_manage_employees": CanManageEmployees(p),
		"can_manage_machines":  CanManageMachines(p),
		"can_manage_parts":     CanManageParts(p),
		"can_manage_tasks":     CanManageTasks(p),
		"can_view_reports":     CanViewReports(p),
	}
}

// CanViewParts admits an explicit view_parts grant or any role from Manager up.
func CanViewParts(p *Principal) bool {
	return HasPermission(p, PermViewParts) || MeetsRole(p, RoleManager)
}
