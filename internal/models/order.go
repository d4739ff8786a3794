package models

import "time"

// Order represents a confirmed configurator order.
type Order struct {
	ID              string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string        `json:"user_id" gorm:"index;type:varchar(36)"`
	Model           string        `json:"model"`
	Color           string        `json:"color"`
	Interior        string        `json:"interior"`
	Customizations  string        `json:"customizations,omitempty" gorm:"type:text"`
	Price           string        `json:"price"` // Display string fixed when the draft was created
	PaymentMethod   PaymentMethod `json:"payment_method" gorm:"type:varchar(32)"`
	CardType        CardType      `json:"card_type,omitempty" gorm:"type:varchar(32)"`
	CardLastFour    string        `json:"card_last_four,omitempty" gorm:"type:varchar(4)"`
	CardHolderName  string        `json:"card_holder_name,omitempty"`
	DeliveryAddress string        `json:"delivery_address" gorm:"type:text"`
	Status          OrderStatus   `json:"status" gorm:"type:varchar(32);index"`
	CreatedAt       time.Time     `json:"created_at" gorm:"index"`
}

// OrderScope selects which orders a listing returns. An empty UserID means all orders.
type OrderScope struct {
	UserID string
}

// AllOrders is the scope used by the admin view.
func AllOrders() OrderScope { return OrderScope{} }

// UserOrders scopes a listing to one user.
func UserOrders(userID string) OrderScope { return OrderScope{UserID: userID} }

// All reports whether the scope spans every user.
func (s OrderScope) All() bool { return s.UserID == "" }

// Matches reports whether the order falls inside the scope.
func (s OrderScope) Matches(o Order) bool {
	return s.All() || o.UserID == s.UserID
}

// Store names where an order ended up after a write.
type Store string

const (
	StoreRemote Store = "remote"
	StoreLocal  Store = "local"
)
