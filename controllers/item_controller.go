package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/marketplace/services"
)

// CreateItemRequest represents the form or JSON body for listing an item
type CreateItemRequest struct {
	Name        string  `form:"name" json:"name" binding:"required,max=200"`
	Description string  `form:"description" json:"description" binding:"required"`
	Price       float64 `form:"price" json:"price" binding:"required,gt=0"`
	Category    string  `form:"category" json:"category" binding:"omitempty,oneof=electronics clothing furniture other"`
	ImageURL    string  `form:"image_url" json:"image_url" binding:"omitempty,url"`
}

// SetAvailabilityRequest represents the body for marking an item sold or available
type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

// ItemList handles GET / - the catalog of available items
func ItemList(c *gin.Context) {
	items, err := catalogService().ListAvailable(c.Request.Context())
	if err != nil {
		renderServerError(c, err)
		return
	}

	c.HTML(http.StatusOK, "item_list.html", page(c, "Items", gin.H{
		"Items": items,
	}))
}

// ItemDetail handles GET /item/:id
func ItemDetail(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		renderNotFound(c)
		return
	}

	item, err := catalogService().Get(c.Request.Context(), itemID)
	if errors.Is(err, services.ErrItemNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderServerError(c, err)
		return
	}

	isSeller := false
	if user := currentUser(c); user != nil {
		isSeller = item.IsSoldBy(user.ID)
	}

	c.HTML(http.StatusOK, "item_detail.html", page(c, item.Name, gin.H{
		"Item":     item,
		"IsSeller": isSeller,
	}))
}

// ListItemsAPI handles GET /api/v1/items
func ListItemsAPI(c *gin.Context) {
	items, err := catalogService().ListAvailable(c.Request.Context())
	if err != nil {
		serviceErrorJSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
	})
}

// GetItemAPI handles GET /api/v1/items/:id
func GetItemAPI(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		errorJSON(c, http.StatusNotFound, services.ErrItemNotFound.Code, services.ErrItemNotFound.Message)
		return
	}

	item, err := catalogService().Get(c.Request.Context(), itemID)
	if err != nil {
		serviceErrorJSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// CreateItemAPI handles POST /api/v1/items - lists an item for the caller.
// Accepts JSON or a multipart form with an optional PNG "image" file.
func CreateItemAPI(c *gin.Context) {
	user, ok := apiUser(c)
	if !ok {
		return
	}

	var req CreateItemRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	input := services.ItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if fileHeader, err := c.FormFile("image"); err == nil {
		input.Image = fileHeader
	}

	item, err := catalogService().Create(c.Request.Context(), user.ID, input)
	if err != nil {
		serviceErrorJSON(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// SetAvailabilityAPI handles PATCH /api/v1/items/:id/availability
func SetAvailabilityAPI(c *gin.Context) {
	user, ok := apiUser(c)
	if !ok {
		return
	}

	itemID, ok := parseID(c, "id")
	if !ok {
		errorJSON(c, http.StatusNotFound, services.ErrItemNotFound.Code, services.ErrItemNotFound.Message)
		return
	}

	var req SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	item, err := catalogService().SetAvailability(c.Request.Context(), user.ID, itemID, *req.IsAvailable)
	if err != nil {
		serviceErrorJSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// DeleteItemAPI handles DELETE /api/v1/items/:id
func DeleteItemAPI(c *gin.Context) {
	user, ok := apiUser(c)
	if !ok {
		return
	}

	itemID, ok := parseID(c, "id")
	if !ok {
		errorJSON(c, http.StatusNotFound, services.ErrItemNotFound.Code, services.ErrItemNotFound.Message)
		return
	}

	if err := catalogService().Delete(c.Request.Context(), user.ID, itemID); err != nil {
		serviceErrorJSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Item deleted",
	})
}
