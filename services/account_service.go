package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kendall-kelly/marketplace/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxUsernameLength = 150
	minPasswordLength = 8
	maxLocationLength = 100
)

var (
	usernamePattern   = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	usernameStripper  = regexp.MustCompile(`[^\p{L}\p{N}_.@+-]+`)
	reservedUsernames = map[string]bool{"edit": true}
)

// maxUsernameAttempts bounds the numeric suffixes tried for a free username
const maxUsernameAttempts = 100

// UserCreatedHook runs inside the user creation transaction
type UserCreatedHook func(tx *gorm.DB, user *models.User) error

// RegisterInput is the data submitted on the registration form
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// ProfileInput is the data submitted on the profile edit form
type ProfileInput struct {
	Bio      string
	Location string
	Avatar   *multipart.FileHeader
}

// AccountService manages users and their profiles
type AccountService struct {
	db     *gorm.DB
	images ImageService
	hooks  []UserCreatedHook
}

// NewAccountService creates an account service that provisions a profile
// for every new user
func NewAccountService(db *gorm.DB, images ImageService) *AccountService {
	return &AccountService{
		db:     db,
		images: images,
		hooks:  []UserCreatedHook{ProvisionProfile},
	}
}

// OnUserCreated registers an additional hook run for every new user
func (s *AccountService) OnUserCreated(hook UserCreatedHook) {
	s.hooks = append(s.hooks, hook)
}

// ProvisionProfile creates the user's Profile
func ProvisionProfile(tx *gorm.DB, user *models.User) error {
	profile := models.Profile{UserID: user.ID}
	if err := tx.Create(&profile).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	user.Profile = &profile
	return nil
}

// NewLocalSubject returns a token subject for a locally registered user
func NewLocalSubject() string {
	return "local|" + uuid.NewString()
}

// Register validates the registration form and creates the user
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(input.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, &ValidationError{Field: "email", Message: "Enter a valid email address."}
		}
	}

	if len(input.Password) < minPasswordLength {
		return nil, &ValidationError{
			Field:   "password1",
			Message: fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength),
		}
	}
	if input.Password != input.PasswordConfirm {
		return nil, &ValidationError{Field: "password2", Message: "The two password fields didn't match."}
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Subject:      NewLocalSubject(),
	}
	if email != "" {
		user.Email = &email
	}

	if err := s.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts the user and runs every UserCreatedHook in the same
// transaction, so a user never exists without its dependent records
func (s *AccountService) CreateUser(ctx context.Context, user *models.User) error {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		for _, hook := range s.hooks {
			if err := hook(tx, user); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return ErrUserExists
		}
		return err
	}

	return nil
}

// ProvisionExternal creates the account for an identity authenticated
// elsewhere. preferred is cleaned into a valid username and suffixed with a
// number until it is free.
func (s *AccountService) ProvisionExternal(ctx context.Context, subject, email, preferred string) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("subject = ?", subject).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	username, err := s.freeUsername(ctx, CleanUsername(preferred))
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Subject: subject}
	if email = strings.TrimSpace(email); email != "" {
		user.Email = &email
	}

	if err := s.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CleanUsername strips the characters a username may not contain and caps
// its length; an empty result becomes "user"
func CleanUsername(raw string) string {
	username := usernameStripper.ReplaceAllString(strings.TrimSpace(raw), "")
	if runes := []rune(username); len(runes) > maxUsernameLength {
		username = string(runes[:maxUsernameLength])
	}
	if username == "" {
		return "user"
	}
	return username
}

func (s *AccountService) freeUsername(ctx context.Context, base string) (string, error) {
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			suffix := strconv.Itoa(attempt)
			runes := []rune(base)
			if len(runes)+len(suffix) > maxUsernameLength {
				runes = runes[:maxUsernameLength-len(suffix)]
			}
			candidate = string(runes) + suffix
		}
		if validateUsername(candidate) != nil {
			continue
		}

		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}

	return "", ErrUsernameTaken
}

// Authenticate checks a username and password
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.HasPassword() || !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// FindBySubject looks up the user a token was issued for
func (s *AccountService) FindBySubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("subject = ?", subject).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetProfile returns the user named username with the profile loaded
func (s *AccountService) GetProfile(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.Profile != nil {
		s.resolveAvatar(ctx, user.Profile)
	}
	return &user, nil
}

// UpdateProfile saves the bio, location and optional avatar of userID
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, input ProfileInput) (*models.Profile, error) {
	location := strings.TrimSpace(input.Location)
	if len([]rune(location)) > maxLocationLength {
		return nil, &ValidationError{
			Field:   "location",
			Message: fmt.Sprintf("Ensure this value has at most %d characters.", maxLocationLength),
		}
	}

	db := s.db.WithContext(ctx)

	var profile models.Profile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{
		"bio":      strings.TrimSpace(input.Bio),
		"location": location,
	}

	var oldAvatar string
	if input.Avatar != nil {
		if s.images == nil {
			return nil, errors.New("image storage is not configured")
		}
		key, err := s.images.UploadImage(ctx, input.Avatar)
		if err != nil {
			return nil, err
		}
		if profile.AvatarKey != nil {
			oldAvatar = *profile.AvatarKey
		}
		updates["avatar_key"] = key
	}

	if err := db.Model(&profile).Updates(updates).Error; err != nil {
		if key, ok := updates["avatar_key"].(string); ok {
			if delErr := s.images.DeleteImage(ctx, key); delErr != nil {
				log.Printf("warning: failed to delete unused avatar %s: %v", key, delErr)
			}
		}
		return nil, err
	}

	if oldAvatar != "" {
		if err := s.images.DeleteImage(ctx, oldAvatar); err != nil {
			log.Printf("warning: failed to delete old avatar %s: %v", oldAvatar, err)
		}
	}

	if err := db.First(&profile, profile.ID).Error; err != nil {
		return nil, err
	}
	s.resolveAvatar(ctx, &profile)
	return &profile, nil
}

// DeleteUser removes the user; the store cascades to profile, items and messages
func (s *AccountService) DeleteUser(ctx context.Context, userID uint) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *AccountService) resolveAvatar(ctx context.Context, profile *models.Profile) {
	if profile.AvatarKey == nil || s.images == nil {
		return
	}
	url, err := s.images.GetImageURL(ctx, *profile.AvatarKey)
	if err != nil {
		log.Printf("warning: failed to resolve avatar %s: %v", *profile.AvatarKey, err)
		return
	}
	profile.AvatarURL = url
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plain password
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validateUsername(username string) error {
	switch {
	case username == "":
		return &ValidationError{Field: "username", Message: "This field is required."}
	case len([]rune(username)) > maxUsernameLength:
		return &ValidationError{
			Field:   "username",
			Message: fmt.Sprintf("Ensure this value has at most %d characters.", maxUsernameLength),
		}
	case !usernamePattern.MatchString(username):
		return &ValidationError{
			Field:   "username",
			Message: "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.",
		}
	case reservedUsernames[username]:
		return &ValidationError{Field: "username", Message: "This username is reserved."}
	}
	return nil
}
