package models

import "time"

type Item struct {
	ID            int64   `gorm:"primaryKey"`
	SellerID      int64   `gorm:"not null;index"`
	Title         string  `gorm:"not null"`
	Price         float64 `gorm:"not null;default:0"`
	Description   string
	City          string
	ImageFilename string
	CreatedAt     time.Time `gorm:"index"`
}

// Listing is an Item joined with the seller fields the feed displays.
type Listing struct {
	Item
	SellerEmail string
	SellerName  string
}

func (l *Listing) SellerDisplayName() string {
	if l.SellerName != "" {
		return l.SellerName
	}
	return l.SellerEmail
}
