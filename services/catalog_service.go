package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/kendall-kelly/marketplace/models"
	"gorm.io/gorm"
)

const (
	maxItemNameLength = 200
	maxItemPrice      = 99999999.99 // numeric(10,2)
)

// ItemInput is the data needed to list a new item
type ItemInput struct {
	Name        string
	Description string
	Price       float64
	Category    string
	ImageURL    string
	Image       *multipart.FileHeader
}

// CatalogService queries and manages item listings
type CatalogService struct {
	db     *gorm.DB
	images ImageService
}

// NewCatalogService creates a catalog service; images may be nil
func NewCatalogService(db *gorm.DB, images ImageService) *CatalogService {
	return &CatalogService{db: db, images: images}
}

// ListAvailable returns the available items, newest first
func (s *CatalogService) ListAvailable(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).
		Preload("Seller").
		Where("is_available = ?", true).
		Order(models.NewestFirst).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	for i := range items {
		s.resolveImage(ctx, &items[i])
	}
	return items, nil
}

// Get returns one item with its seller
func (s *CatalogService) Get(ctx context.Context, itemID uint) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Preload("Seller").First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	s.resolveImage(ctx, &item)
	return &item, nil
}

// Create lists a new available item for sellerID
func (s *CatalogService) Create(ctx context.Context, sellerID uint, input ItemInput) (*models.Item, error) {
	item, err := newItem(input)
	if err != nil {
		return nil, err
	}
	item.SellerID = &sellerID

	if input.Image != nil {
		if s.images == nil {
			return nil, errors.New("image storage is not configured")
		}
		key, err := s.images.UploadImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		item.ImageKey = &key
	}

	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		s.deleteImage(ctx, item.ImageKey)
		return nil, err
	}

	return s.Get(ctx, item.ID)
}

// SetAvailability marks an item as available or sold; only its seller may
func (s *CatalogService) SetAvailability(ctx context.Context, sellerID, itemID uint, available bool) (*models.Item, error) {
	item, err := s.ownedItem(ctx, sellerID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(item).Update("is_available", available).Error; err != nil {
		return nil, err
	}

	return s.Get(ctx, itemID)
}

// Delete removes an item and, through the store, its messages
func (s *CatalogService) Delete(ctx context.Context, sellerID, itemID uint) error {
	item, err := s.ownedItem(ctx, sellerID, itemID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Item{}, item.ID).Error; err != nil {
		return err
	}

	s.deleteImage(ctx, item.ImageKey)
	return nil
}

func (s *CatalogService) ownedItem(ctx context.Context, sellerID, itemID uint) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if !item.IsSoldBy(sellerID) {
		return nil, ErrNotItemOwner
	}
	return &item, nil
}

// resolveImage fills DisplayURL from the external URL or the stored image
func (s *CatalogService) resolveImage(ctx context.Context, item *models.Item) {
	if item.ImageURL != nil && *item.ImageURL != "" {
		item.DisplayURL = *item.ImageURL
		return
	}
	if item.ImageKey == nil || s.images == nil {
		return
	}

	imageURL, err := s.images.GetImageURL(ctx, *item.ImageKey)
	if err != nil {
		log.Printf("warning: failed to resolve image for item %d: %v", item.ID, err)
		return
	}
	item.DisplayURL = imageURL
}

func (s *CatalogService) deleteImage(ctx context.Context, key *string) {
	if key == nil || s.images == nil {
		return
	}
	if err := s.images.DeleteImage(ctx, *key); err != nil {
		log.Printf("warning: failed to delete image %s: %v", *key, err)
	}
}

func newItem(input ItemInput) (*models.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "Name is required"}
	}
	if len([]rune(name)) > maxItemNameLength {
		return nil, &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("Name must be at most %d characters", maxItemNameLength),
		}
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, &ValidationError{Field: "description", Message: "Description is required"}
	}

	price := math.Round(input.Price*100) / 100
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 || price > maxItemPrice {
		return nil, &ValidationError{Field: "price", Message: "Price must be greater than 0 and fit in 10 digits"}
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = models.CategoryOther
	}
	if !models.IsValidCategory(category) {
		return nil, &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("Category must be one of %s", strings.Join(models.Categories, ", ")),
		}
	}

	item := &models.Item{
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		IsAvailable: true,
	}

	if raw := strings.TrimSpace(input.ImageURL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, &ValidationError{Field: "image_url", Message: "Enter a valid URL."}
		}
		item.ImageURL = &raw
	}

	return item, nil
}
