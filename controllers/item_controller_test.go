package controllers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kendall-kelly/marketplace/models"
	"github.com/kendall-kelly/marketplace/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemList(t *testing.T) {
	app := setupTestApp(t)
	seller := testutil.CreateUser(t, app.db, "seller")
	testutil.CreateItem(t, app.db, seller, "Phone", true)
	testutil.CreateItem(t, app.db, seller, "Chair", false)

	w := app.get(t, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Phone")
	assert.NotContains(t, w.Body.String(), "Chair", "sold items are not listed")
	assert.Contains(t, w.Body.String(), "by seller")
}

func TestItemList_Empty(t *testing.T) {
	app := setupTestApp(t)

	w := app.get(t, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No items available right now.")
	assert.Contains(t, w.Body.String(), `href="/login"`)
}

func TestItemDetail(t *testing.T) {
	app := setupTestApp(t)
	seller := testutil.CreateUser(t, app.db, "seller")
	buyer := testutil.CreateUser(t, app.db, "buyer")
	phone := testutil.CreateItem(t, app.db, seller, "Phone", true)
	chair := testutil.CreateItem(t, app.db, seller, "Chair", false)

	t.Run("Anonymous visitor is asked to log in", func(t *testing.T) {
		w := app.get(t, fmt.Sprintf("/item/%d", phone.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Phone")
		assert.Contains(t, w.Body.String(), "to message the seller")
		assert.NotContains(t, w.Body.String(), "<textarea")
	})

	t.Run("Buyer sees the message form", func(t *testing.T) {
		w := app.get(t, fmt.Sprintf("/item/%d", phone.ID), buyer)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Write your message to the seller...")
		assert.Contains(t, w.Body.String(), fmt.Sprintf(`action="/item/%d/message"`, phone.ID))
	})

	t.Run("Seller sees their own listing", func(t *testing.T) {
		w := app.get(t, fmt.Sprintf("/item/%d", phone.ID), seller)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "This is your listing.")
		assert.NotContains(t, w.Body.String(), "<textarea")
	})

	t.Run("Sold item is still viewable", func(t *testing.T) {
		w := app.get(t, fmt.Sprintf("/item/%d", chair.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "This item has been sold.")
	})

	for _, path := range []string{"/item/9999", "/item/abc", "/item/0"} {
		t.Run("Not found "+path, func(t *testing.T) {
			w := app.get(t, path, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestListItemsAPI(t *testing.T) {
	app := setupTestApp(t)
	seller := testutil.CreateUser(t, app.db, "seller")
	testutil.CreateItem(t, app.db, seller, "Phone", true)
	testutil.CreateItem(t, app.db, seller, "Chair", false)

	w, response := app.api(t, http.MethodGet, "/api/v1/items", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, response["success"].(bool))
	data := response["data"].([]interface{})
	require.Len(t, data, 1)
	item := data[0].(map[string]interface{})
	assert.Equal(t, "Phone", item["name"])
	assert.Equal(t, true, item["is_available"])
}

func TestGetItemAPI(t *testing.T) {
	app := setupTestApp(t)
	seller := testutil.CreateUser(t, app.db, "seller")
	phone := testutil.CreateItem(t, app.db, seller, "Phone", true)

	w, response := app.api(t, http.MethodGet, fmt.Sprintf("/api/v1/items/%d", phone.ID), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Phone", data["name"])
	sellerData := data["seller"].(map[string]interface{})
	assert.Equal(t, "seller", sellerData["username"])
	assert.NotContains(t, sellerData, "email", "emails are private")

	w, response = app.api(t, http.MethodGet, "/api/v1/items/9999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ITEM_NOT_FOUND", errorCode(response))
}

func TestCreateItemAPI(t *testing.T) {
	app := setupTestApp(t)
	seller := testutil.CreateUser(t, app.db, "seller")

	tests := []struct {
		name           string
		subject        string
		body           map[string]interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name:    "Valid item",
			subject: seller.Subject,
			body: map[string]interface{}{
				"name":        "Desk",
				"description": "Solid oak",
				"price":       120.5,
				"category":    "furniture",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing token",
			body:           map[string]interface{}{"name": "Desk"},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "INVALID_TOKEN",
		},
		{
			name:           "Unknown user",
			subject:        "local|ghost",
			body:           map[string]interface{}{"name": "Desk", "description": "x", "price": 1},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "USER_NOT_FOUND",
		},
		{
			name:           "Missing fields",
			subject:        seller.Subject,
			body:           map[string]interface{}{"name": "Desk"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:    "Unknown category",
			subject: seller.Subject,
			body: map[string]interface{}{
				"name":        "Desk",
				"description": "Solid oak",
				"price":       10,
				"category":    "toys",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:    "Negative price",
			subject: seller.Subject,
			body: map[string]interface{}{
				"name":        "Desk",
				"description": "Solid oak",
				"price":       -3,
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := app.api(t, http.MethodPost, "/api/v1/items", tt.body, tt.subject)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(response))
				return
			}

			data := response["data"].(map[string]interface{})
			assert.Equal(t, "Desk", data["name"])
			assert.Equal(t, 120.5, data["price"])
			assert.Equal(t, "furniture", data["category"])
			assert.Equal(t, true, data["is_available"])
			assert.Equal(t, float64(seller.ID), data["seller_id"])
		})
	}
}

func TestCreateItemAPI_WithImage(t *testing.T) {
	app := setupTestApp(t)
	seller := testutil.CreateUser(t, app.db, "seller")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("name", "Lamp"))
	require.NoError(t, writer.WriteField("description", "Bright"))
	require.NoError(t, writer.WriteField("price", "15"))
	part, err := writer.CreateFormFile("image", "lamp.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", testutil.BearerToken(t, app.cfg, seller.Subject))
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, app.images.ImageExists("uploads/mock_lamp.png"))
	assert.Contains(t, w.Body.String(), "https://images.test/uploads/mock_lamp.png")
}

func TestSetAvailabilityAPI(t *testing.T) {
	app := setupTestApp(t)
	seller := testutil.CreateUser(t, app.db, "seller")
	other := testutil.CreateUser(t, app.db, "other")
	phone := testutil.CreateItem(t, app.db, seller, "Phone", true)
	path := fmt.Sprintf("/api/v1/items/%d/availability", phone.ID)

	w, response := app.api(t, http.MethodPatch, path, map[string]interface{}{"is_available": false}, other.Subject)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	w, response = app.api(t, http.MethodPatch, path, map[string]interface{}{}, seller.Subject)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, response = app.api(t, http.MethodPatch, path, map[string]interface{}{"is_available": false}, seller.Subject)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, response["data"].(map[string]interface{})["is_available"])

	var stored models.Item
	require.NoError(t, app.db.First(&stored, phone.ID).Error)
	assert.False(t, stored.IsAvailable)

	listing := app.get(t, "/", nil)
	assert.NotContains(t, listing.Body.String(), "Phone")
}

func TestDeleteItemAPI(t *testing.T) {
	app := setupTestApp(t)
	seller := testutil.CreateUser(t, app.db, "seller")
	other := testutil.CreateUser(t, app.db, "other")
	phone := testutil.CreateItem(t, app.db, seller, "Phone", true)
	path := fmt.Sprintf("/api/v1/items/%d", phone.ID)

	w, _ := app.api(t, http.MethodDelete, path, nil, other.Subject)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, response := app.api(t, http.MethodDelete, path, nil, seller.Subject)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, response["success"].(bool))

	w, _ = app.api(t, http.MethodDelete, path, nil, seller.Subject)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
