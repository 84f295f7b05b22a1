package domain

import "time"

// Product is a catalog entry. The sale row snapshots the product name at
// purchase time, so deleting a product never touches past sales.
type Product struct {
	ID             uint      `gorm:"primaryKey" json:"product_id"`
	Channel        string    `gorm:"size:16;index;not null;default:retail" json:"channel"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	DurationMonths int       `gorm:"not null;default:1" json:"duration"`
	Price          float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Profit         float64   `gorm:"type:decimal(10,2);not null" json:"profit"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
