package models

import "time"

const (
	SystemRoleMain  = "main"
	SystemRoleChild = "child"

	// A company may register at most this many sub-accounts.
	MaxSubAccounts = 3
)

type Company struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(128);not null" json:"name"`
	PostalCode  string `gorm:"type:varchar(16)" json:"postal_code"`
	Prefecture  string `gorm:"type:varchar(64)" json:"prefecture"`
	City        string `gorm:"type:varchar(64)" json:"city"`
	AddressLine string `gorm:"type:varchar(256)" json:"address_line"`
	Phone       string `gorm:"type:varchar(32)" json:"phone"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Users []User `gorm:"foreignKey:CompanyID" json:"users,omitempty"`
}

type User struct {
	ID        int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID int64    `gorm:"index;not null" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Name     string `gorm:"type:varchar(64);not null" json:"name"`

	SystemRole string `gorm:"type:varchar(8);not null;default:'child'" json:"system_role"`

	// JSON blob; parsed defensively by the permissions package.
	Permissions string `gorm:"type:text" json:"permissions"`

	// Soft delete only: historical orders keep referencing the row.
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsMain() bool {
	return u.SystemRole == SystemRoleMain
}
