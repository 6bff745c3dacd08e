package employee

import "time"

type Employee struct {
	ID                    string               `gorm:"primaryKey;type:varchar(36)"`
	FirstName             string               `gorm:"column:first_name;not null"`
	LastName              string               `gorm:"column:last_name;not null"`
	Email                 string               `gorm:"column:email;uniqueIndex;not null"`
	Phone                 string               `gorm:"column:phone"`
	PasswordHash          string               `gorm:"column:password_hash;not null"`
	Role                  string               `gorm:"column:role;not null"`
	Department            string               `gorm:"column:department"`
	Status                string               `gorm:"column:status;not null"`
	HireDate              *time.Time           `gorm:"column:hire_date"`
	Address               string               `gorm:"column:address"`
	EmergencyContactName  string               `gorm:"column:emergency_contact_name"`
	EmergencyContactPhone string               `gorm:"column:emergency_contact_phone"`
	Skills                []string             `gorm:"column:skills;serializer:json"`
	Notes                 string               `gorm:"column:notes"`
	Permissions           []EmployeePermission `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Employee) TableName() string {
	return "employees"
}

// EmployeePermission keeps revoked permissions as granted=false rows.
type EmployeePermission struct {
	EmployeeID     string    `gorm:"primaryKey;column:employee_id;type:varchar(36)"`
	PermissionName string    `gorm:"primaryKey;column:permission_name"`
	Granted        bool      `gorm:"column:granted;not null"`
	GrantedBy      *string   `gorm:"column:granted_by;type:varchar(36)"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (EmployeePermission) TableName() string {
	return "employee_permissions"
}

type Permission struct {
	Name        string    `gorm:"primaryKey;column:name"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}
