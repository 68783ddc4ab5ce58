package models

import (
	"fmt"
	"time"
)

// Item categories
const (
	CategoryElectronics = "electronics"
	CategoryClothing    = "clothing"
	CategoryFurniture   = "furniture"
	CategoryOther       = "other"
)

// Categories lists the valid item categories in display order
var Categories = []string{CategoryElectronics, CategoryClothing, CategoryFurniture, CategoryOther}

var categoryLabels = map[string]string{
	CategoryElectronics: "Electronics",
	CategoryClothing:    "Clothing",
	CategoryFurniture:   "Furniture",
	CategoryOther:       "Other",
}

// Item is a listing for sale
type Item struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Price       float64   `gorm:"type:numeric(10,2);not null" json:"price"`
	Category    string    `gorm:"size:50;not null;default:'other'" json:"category"`
	ImageURL    *string   `json:"image_url"`                            // external image link
	ImageKey    *string   `json:"-"`                                    // storage key of an uploaded image
	DisplayURL  string    `gorm:"-" json:"display_image_url,omitempty"` // computed: ImageURL or a URL for ImageKey
	IsAvailable bool      `gorm:"not null;index" json:"is_available"`   // no gorm default: false must be written as-is
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	SellerID    *uint     `gorm:"index" json:"seller_id"` // nullable
	Seller      *User     `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"seller,omitempty"`
}

// TableName specifies the table name for the Item model
func (Item) TableName() string {
	return "items"
}

func (i Item) String() string {
	return i.Name
}

// CategoryLabel returns the human readable category name
func (i Item) CategoryLabel() string {
	if label, ok := categoryLabels[i.Category]; ok {
		return label
	}
	return i.Category
}

// FormattedPrice renders the price with two decimals
func (i Item) FormattedPrice() string {
	return fmt.Sprintf("%.2f", i.Price)
}

// IsSoldBy reports whether userID is the seller of the item
func (i Item) IsSoldBy(userID uint) bool {
	return i.SellerID != nil && *i.SellerID == userID
}

// IsValidCategory reports whether category is one of Categories
func IsValidCategory(category string) bool {
	_, ok := categoryLabels[category]
	return ok
}
