package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "users", User{}.TableName())
	assert.Equal(t, "profiles", Profile{}.TableName())
	assert.Equal(t, "items", Item{}.TableName())
	assert.Equal(t, "messages", Message{}.TableName())
}

func TestItemString(t *testing.T) {
	item := Item{Name: "Test Laptop"}
	assert.Equal(t, "Test Laptop", item.String())
}

func TestItemFormattedPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{499.99, "499.99"},
		{120, "120.00"},
		{0.5, "0.50"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Item{Price: tt.price}.FormattedPrice())
		})
	}
}

func TestItemCategoryLabel(t *testing.T) {
	assert.Equal(t, "Electronics", Item{Category: CategoryElectronics}.CategoryLabel())
	assert.Equal(t, "Furniture", Item{Category: CategoryFurniture}.CategoryLabel())
	assert.Equal(t, "mystery", Item{Category: "mystery"}.CategoryLabel())
}

func TestIsValidCategory(t *testing.T) {
	for _, category := range Categories {
		assert.True(t, IsValidCategory(category), category)
	}
	assert.False(t, IsValidCategory(""))
	assert.False(t, IsValidCategory("toys"))
}

func TestItemIsSoldBy(t *testing.T) {
	sellerID := uint(7)
	item := Item{SellerID: &sellerID}

	assert.True(t, item.IsSoldBy(7))
	assert.False(t, item.IsSoldBy(8))
	assert.False(t, Item{}.IsSoldBy(7), "an item without a seller is sold by nobody")
}

func TestProfileDisplayName(t *testing.T) {
	assert.Equal(t, "testuser's Profile", Profile{}.DisplayName("testuser"))
}

func TestUserHasPassword(t *testing.T) {
	assert.False(t, (&User{}).HasPassword())
	assert.True(t, (&User{PasswordHash: "$2a$10$abc"}).HasPassword())
}
