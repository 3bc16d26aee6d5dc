package models

import "time"

// OrderStatusPaid marks an order created from a confirmed payment.
const OrderStatusPaid = "paid"

// OrderItem is a cart line frozen at purchase time.
type OrderItem struct {
	ID        uint    `json:"-" gorm:"primaryKey"`
	OrderID   string  `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"productId" gorm:"type:varchar(36)"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"` // Price at the time of order
}

// Order represents a paid checkout.
type Order struct {
	ID              string      `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string      `json:"userId" gorm:"index;type:varchar(36)"`
	Items           []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount     float64     `json:"totalAmount"`
	Status          string      `json:"status"`
	PaymentIntentID string      `json:"paymentIntentId" gorm:"index;type:varchar(255)"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}
