package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/marketplace/config"
	"github.com/kendall-kelly/marketplace/middleware"
	"github.com/kendall-kelly/marketplace/models"
	"github.com/kendall-kelly/marketplace/services"
	"github.com/kendall-kelly/marketplace/utils"
)

const currentUserKey = "current_user"

func accountService() *services.AccountService {
	return services.NewAccountService(config.GetDB(), services.GetImageService())
}

func catalogService() *services.CatalogService {
	return services.NewCatalogService(config.GetDB(), services.GetImageService())
}

func messagingService() *services.MessagingService {
	return services.NewMessagingService(config.GetDB())
}

// currentUser resolves the user behind the validated token, if any
func currentUser(c *gin.Context) *models.User {
	if cached, ok := c.Get(currentUserKey); ok {
		user, _ := cached.(*models.User)
		return user
	}

	var user *models.User
	if subject, err := middleware.GetUserID(c); err == nil {
		found, err := accountService().FindBySubject(c.Request.Context(), subject)
		if err != nil && !errors.Is(err, services.ErrUserNotFound) {
			log.Printf("Failed to load user %s: %v", subject, err)
		}
		user = found
	}

	c.Set(currentUserKey, user)
	return user
}

// requireUser returns the logged in user or redirects to the login page
func requireUser(c *gin.Context) (*models.User, bool) {
	user := currentUser(c)
	if user == nil {
		middleware.EndSession(c)
		c.Redirect(http.StatusFound, middleware.LoginURL(c.Request))
		c.Abort()
		return nil, false
	}
	return user, true
}

// page adds the data every template needs: user, flash and unread count
func page(c *gin.Context, title string, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Flash"] = middleware.PopFlash(c)

	if user := currentUser(c); user != nil {
		data["User"] = user
		count, err := messagingService().UnreadCount(c.Request.Context(), user.ID)
		if err != nil {
			log.Printf("Failed to count unread messages for user %d: %v", user.ID, err)
		}
		data["UnreadCount"] = count
	}
	return data
}

func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", page(c, http.StatusText(status), gin.H{
		"Status":  status,
		"Message": message,
	}))
}

func renderNotFound(c *gin.Context) {
	renderError(c, http.StatusNotFound, "The page you requested does not exist.")
}

func renderServerError(c *gin.Context, err error) {
	log.Printf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// safeNext keeps login redirects on this site
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// serviceErrorJSON maps service errors onto API responses
func serviceErrorJSON(c *gin.Context, err error) {
	var (
		svcErr    *services.ServiceError
		validErr  *services.ValidationError
		uploadErr *utils.FileUploadError
	)

	switch {
	case errors.As(err, &validErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": validErr.Message,
				"field":   validErr.Field,
			},
		})
	case errors.As(err, &uploadErr):
		errorJSON(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
	case errors.As(err, &svcErr):
		errorJSON(c, serviceErrorStatus(svcErr), svcErr.Code, svcErr.Message)
	default:
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		errorJSON(c, http.StatusInternalServerError, "DATABASE_ERROR", "An internal error occurred")
	}
}

func serviceErrorStatus(err *services.ServiceError) int {
	switch err {
	case services.ErrItemNotFound, services.ErrUserNotFound:
		return http.StatusNotFound
	case services.ErrSelfMessaging, services.ErrNotItemOwner:
		return http.StatusForbidden
	case services.ErrNoRecipient:
		return http.StatusUnprocessableEntity
	case services.ErrInvalidMessage:
		return http.StatusBadRequest
	case services.ErrUsernameTaken, services.ErrUserExists:
		return http.StatusConflict
	case services.ErrInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// apiUser resolves the API caller or writes the error response
func apiUser(c *gin.Context) (*models.User, bool) {
	subject, err := middleware.GetUserID(c)
	if err != nil {
		errorJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}

	user, err := accountService().FindBySubject(c.Request.Context(), subject)
	if errors.Is(err, services.ErrUserNotFound) {
		errorJSON(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
		return nil, false
	}
	if err != nil {
		serviceErrorJSON(c, err)
		return nil, false
	}
	return user, true
}
