package models

import "time"

type ProductMaster struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string `gorm:"uniqueIndex;not null" json:"code"`
	Name         string `gorm:"type:varchar(128);not null" json:"name"`
	Manufacturer string `gorm:"type:varchar(64)" json:"manufacturer"`
	Capacity     string `gorm:"type:varchar(32)" json:"capacity"`
	Unit         string `gorm:"type:varchar(16)" json:"unit"`
	OilType      string `gorm:"type:varchar(32)" json:"oil_type"`
	PackageType  string `gorm:"type:varchar(32)" json:"package_type"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyProduct enables a global product for one company and carries
// the tenant-specific price and quotation window.
type CompanyProduct struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID       int64          `gorm:"not null;uniqueIndex:idx_company_product" json:"company_id"`
	ProductMasterID int64          `gorm:"not null;uniqueIndex:idx_company_product" json:"product_master_id"`
	ProductMaster   *ProductMaster `gorm:"foreignKey:ProductMasterID" json:"product_master,omitempty"`

	Enabled bool `gorm:"default:true" json:"enabled"`

	// Nil means no price has been set yet; stored as a decimal string.
	Price               *string    `gorm:"type:varchar(32)" json:"price"`
	QuotationExpiryDate *time.Time `json:"quotation_expiry_date"`
	DisplayOrder        int32      `gorm:"default:0" json:"display_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Schedules []PriceSchedule `gorm:"foreignKey:CompanyProductID" json:"schedules,omitempty"`
}

// PriceSchedule is a future price change for a company product. The API
// only ever creates it unapplied; the schedule worker copies the price
// into CompanyProduct.Price once the effective date arrives.
type PriceSchedule struct {
	ID               int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyProductID int64 `gorm:"index;not null" json:"company_product_id"`

	ScheduledPrice string    `gorm:"type:varchar(32);not null" json:"scheduled_price"`
	EffectiveDate  time.Time `gorm:"not null" json:"effective_date"`
	ExpiryDate     time.Time `gorm:"not null" json:"expiry_date"`

	IsApplied bool       `gorm:"default:false;index" json:"is_applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
