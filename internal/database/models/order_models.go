package models

import "time"

const (
	OrderStatusPending         = "pending"
	OrderStatusConfirmed       = "confirmed"
	OrderStatusProcessing      = "processing"
	OrderStatusShipped         = "shipped"
	OrderStatusDelivered       = "delivered"
	OrderStatusCancelled       = "cancelled"
	OrderStatusCancelRequested = "cancel_requested"
	OrderStatusCancelRejected  = "cancel_rejected"

	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"

	// Upper bound for Approval.RejectionReason, in runes.
	RejectionReasonMaxLen = 200
)

type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID      int64  `gorm:"index;not null" json:"user_id"`
	User        *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Delivery address is snapshotted, not referenced: later edits to the
	// user's address must not change what an order shipped to.
	DeliveryName       string `gorm:"type:varchar(64);not null" json:"delivery_name"`
	DeliveryPostalCode string `gorm:"type:varchar(16);not null" json:"delivery_postal_code"`
	DeliveryAddress    string `gorm:"type:varchar(256);not null" json:"delivery_address"`
	DeliveryPhone      string `gorm:"type:varchar(32)" json:"delivery_phone"`

	Status      string `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount string `gorm:"type:varchar(32);not null" json:"total_amount"`

	RequiresApproval bool `gorm:"not null;default:false" json:"requires_approval"`
	// Mirror of Approval.Status; nil when no approval gate exists.
	ApprovalStatus *string `gorm:"type:varchar(20)" json:"approval_status"`

	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID" json:"order_items,omitempty"`
	Approval   *Approval   `gorm:"foreignKey:OrderID" json:"approval,omitempty"`
}

type OrderItem struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64           `gorm:"index;not null" json:"order_id"`
	CompanyProductID int64           `gorm:"not null" json:"company_product_id"`
	CompanyProduct   *CompanyProduct `gorm:"foreignKey:CompanyProductID" json:"company_product,omitempty"`

	ProductName string `gorm:"type:varchar(128);not null" json:"product_name"`
	Quantity    int32  `gorm:"not null" json:"quantity"`
	// Snapshots taken at order time; never re-read from the catalog.
	UnitPrice  string `gorm:"type:varchar(32);not null" json:"unit_price"`
	TotalPrice string `gorm:"type:varchar(32);not null" json:"total_price"`

	CreatedAt time.Time `json:"created_at"`
}

type Approval struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64  `gorm:"uniqueIndex;not null" json:"order_id"`
	Order   *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`

	Status string `gorm:"type:varchar(20);not null;index" json:"status"`

	RequesterID int64  `gorm:"not null" json:"requester_id"`
	Requester   *User  `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	ApproverID  *int64 `json:"approver_id"`
	Approver    *User  `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`

	RequestedAt     time.Time  `gorm:"not null" json:"requested_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason *string    `gorm:"type:varchar(200)" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CartItem struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           int64           `gorm:"not null;uniqueIndex:idx_user_cart_product" json:"user_id"`
	CompanyProductID int64           `gorm:"not null;uniqueIndex:idx_user_cart_product" json:"company_product_id"`
	CompanyProduct   *CompanyProduct `gorm:"foreignKey:CompanyProductID" json:"company_product,omitempty"`

	Quantity int32 `gorm:"not null" json:"quantity"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
