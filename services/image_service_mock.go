package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"sync"

	"github.com/kendall-kelly/marketplace/utils"
)

// MockImageService is an in-memory ImageService for tests
type MockImageService struct {
	mu     sync.RWMutex
	images map[string]string // image key to original filename
}

// NewMockImageService creates a new mock image service
func NewMockImageService() *MockImageService {
	return &MockImageService{images: make(map[string]string)}
}

// SetAsMockForTesting sets this mock as the global image service instance
func (m *MockImageService) SetAsMockForTesting() {
	SetImageService(m)
}

// UploadImage validates the file like the real services and records it
func (m *MockImageService) UploadImage(_ context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	imageKey := "uploads/mock_" + fileHeader.Filename

	m.mu.Lock()
	m.images[imageKey] = fileHeader.Filename
	m.mu.Unlock()

	return imageKey, nil
}

// GetImageURL returns a fake URL for recorded keys
func (m *MockImageService) GetImageURL(_ context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	if !m.ImageExists(imageKey) {
		return "", fmt.Errorf("image not found in mock storage: %s", imageKey)
	}
	return fmt.Sprintf("https://images.test/%s", imageKey), nil
}

// DeleteImage forgets the key
func (m *MockImageService) DeleteImage(_ context.Context, imageKey string) error {
	m.mu.Lock()
	delete(m.images, imageKey)
	m.mu.Unlock()
	return nil
}

// ImageExists checks if an image key is recorded
func (m *MockImageService) ImageExists(imageKey string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.images[imageKey]
	return exists
}

// Count returns the number of stored images
func (m *MockImageService) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}
