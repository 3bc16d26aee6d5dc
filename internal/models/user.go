package models

import "time"

// CurrentUserSchemaVersion is the user document layout in which every cart entry
// is a {productId, quantity} record.
const CurrentUserSchemaVersion = 2

// User represents a storefront account.
type User struct {
	ID            string     `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Email         string     `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Password      string     `json:"-" gorm:"type:varchar(255)"` // bcrypt hash
	IsAdmin       bool       `json:"isAdmin"`
	UserCart      []CartItem `json:"userCart" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	SchemaVersion int        `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CartItem is a weak reference to a product plus the wanted quantity.
type CartItem struct {
	ID        uint   `json:"-" gorm:"primaryKey"`
	UserID    string `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string `json:"productId" gorm:"type:varchar(36)"`
	Quantity  int    `json:"quantity"`
}

// CartLine is a cart entry with its product resolved.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// FindCartItem returns the index of productID in the cart, or -1.
func (u *User) FindCartItem(productID string) int {
	for i, item := range u.UserCart {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
