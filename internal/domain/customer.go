package domain

import "time"

// Customer — покупатель. В рамках оформления заказа не изменяется.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
