package database

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tounfite-souk/app/internal/models"
	"gorm.io/gorm"
)

// ItemInput carries the fields of the add-item form after upload handling.
type ItemInput struct {
	Title         string
	Price         float64
	Description   string
	City          string
	ImageFilename string
}

// ItemFilter narrows ListItems. Empty fields do not filter.
type ItemFilter struct {
	Text string
	City string
}

// ParsePrice turns the raw price field into a number. Absent, unparsable,
// non-finite and negative input all become 0.
func ParsePrice(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// CreateItem inserts a listing owned by seller.
func CreateItem(ctx context.Context, db *gorm.DB, seller *models.User, in ItemInput) (*models.Item, error) {
	if !seller.IsSeller() {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}
	price := in.Price
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		price = 0
	}

	item := &models.Item{
		SellerID:      seller.ID,
		Title:         title,
		Price:         price,
		Description:   in.Description,
		City:          strings.TrimSpace(in.City),
		ImageFilename: in.ImageFilename,
	}
	if err := db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	return GetItemByID(ctx, db, item.ID)
}

// GetItemByID retrieves an item by its ID.
func GetItemByID(ctx context.Context, db *gorm.DB, id int64) (*models.Item, error) {
	item := &models.Item{}
	if err := db.WithContext(ctx).First(item, id).Error; err != nil {
		return nil, notFound(err)
	}
	return item, nil
}

// ListItems returns all listings newest first. Text matches title or
// description, city matches city; both are case-sensitive substrings.
func ListItems(ctx context.Context, db *gorm.DB, f ItemFilter) ([]*models.Listing, error) {
	q := listingQuery(ctx, db)
	if text := strings.TrimSpace(f.Text); text != "" {
		q = q.Where("(instr(items.title, ?) > 0 OR instr(items.description, ?) > 0)", text, text)
	}
	if city := strings.TrimSpace(f.City); city != "" {
		q = q.Where("instr(items.city, ?) > 0", city)
	}
	return scanListings(q)
}

// ListItemsBySeller returns the listings of sellerID. Only that seller may ask.
func ListItemsBySeller(ctx context.Context, db *gorm.DB, caller *models.User, sellerID int64) ([]*models.Listing, error) {
	if !caller.IsSeller() || caller.ID != sellerID {
		return nil, ErrForbidden
	}
	return scanListings(listingQuery(ctx, db).Where("items.seller_id = ?", sellerID))
}

func listingQuery(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Table("items").
		Select("items.*, users.email AS seller_email, users.name AS seller_name").
		Joins("JOIN users ON users.id = items.seller_id")
}

func scanListings(q *gorm.DB) ([]*models.Listing, error) {
	var listings []*models.Listing
	if err := q.Order("items.created_at DESC, items.id DESC").Scan(&listings).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return listings, nil
}
