package models

import "time"

// Equipment data monitoring: categories own projects, projects own
// measurements. Deleting a category cascades the whole subtree.

type DataMonitorCategory struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID int64  `gorm:"index;not null" json:"company_id"`
	Name      string `gorm:"type:varchar(64);not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Projects []DataMonitorProject `gorm:"foreignKey:CategoryID" json:"projects,omitempty"`
}

type DataMonitorProject struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID int64  `gorm:"index;not null" json:"category_id"`
	Name       string `gorm:"type:varchar(64);not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Measurements []Measurement `gorm:"foreignKey:ProjectID" json:"measurements,omitempty"`
}

type Measurement struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID int64  `gorm:"index;not null" json:"project_id"`
	Value     string `gorm:"type:varchar(32);not null" json:"value"`
	Unit      string `gorm:"type:varchar(16)" json:"unit"`

	MeasuredAt time.Time `gorm:"not null" json:"measured_at"`
	CreatedAt  time.Time `json:"created_at"`
}
