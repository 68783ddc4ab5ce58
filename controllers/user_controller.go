package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/marketplace/config"
	"github.com/kendall-kelly/marketplace/middleware"
	"github.com/kendall-kelly/marketplace/models"
	"github.com/kendall-kelly/marketplace/services"
	"github.com/kendall-kelly/marketplace/utils"
)

const (
	// ProfileUpdatedNotice is flashed after the profile form is saved
	ProfileUpdatedNotice = "Your profile has been updated."
	// InvalidFormNotice is shown when a submitted form cannot be parsed
	InvalidFormNotice = "The form could not be read. Please try again."
)

// RegisterForm is the registration page form
type RegisterForm struct {
	Username  string `form:"username"`
	Email     string `form:"email"`
	Password1 string `form:"password1"`
	Password2 string `form:"password2"`
}

// LoginForm is the login page form
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

// ProfileForm is the profile edit form; the avatar file is read separately
type ProfileForm struct {
	Bio      string `form:"bio"`
	Location string `form:"location"`
}

// UpdateUserRequest represents the request body for updating a profile
type UpdateUserRequest struct {
	Bio      string `json:"bio"`
	Location string `json:"location" binding:"max=100"`
}

// ShowRegister handles GET /register
func ShowRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", page(c, "Register", gin.H{
		"Form": RegisterForm{},
	}))
}

// Register handles POST /register - creates the account and logs it in
func Register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "register.html", page(c, "Register", gin.H{
			"Form":  RegisterForm{},
			"Error": InvalidFormNotice,
		}))
		return
	}

	user, err := accountService().Register(c.Request.Context(), services.RegisterInput{
		Username:        form.Username,
		Email:           form.Email,
		Password:        form.Password1,
		PasswordConfirm: form.Password2,
	})
	if err != nil {
		if services.IsValidationError(err) || errors.Is(err, services.ErrUsernameTaken) || errors.Is(err, services.ErrUserExists) {
			form.Password1, form.Password2 = "", ""
			c.HTML(http.StatusOK, "register.html", page(c, "Register", gin.H{
				"Form":  form,
				"Error": err.Error(),
			}))
			return
		}
		renderServerError(c, err)
		return
	}

	if err := middleware.StartSession(c, config.GetConfig(), user.Subject); err != nil {
		renderServerError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// ShowLogin handles GET /login
func ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", page(c, "Log in", gin.H{
		"Next": safeNext(c.Query("next")),
	}))
}

// Login handles POST /login
func Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "login.html", page(c, "Log in", gin.H{
			"Next":  "/",
			"Error": InvalidFormNotice,
		}))
		return
	}

	user, err := accountService().Authenticate(c.Request.Context(), form.Username, form.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.HTML(http.StatusOK, "login.html", page(c, "Log in", gin.H{
			"Next":     safeNext(form.Next),
			"Username": form.Username,
			"Error":    err.Error(),
		}))
		return
	}
	if err != nil {
		renderServerError(c, err)
		return
	}

	if err := middleware.StartSession(c, config.GetConfig(), user.Subject); err != nil {
		renderServerError(c, err)
		return
	}
	c.Redirect(http.StatusFound, safeNext(form.Next))
}

// Logout handles POST /logout
func Logout(c *gin.Context) {
	middleware.EndSession(c)
	c.Redirect(http.StatusFound, "/")
}

// ShowProfile handles GET /profile/:username
func ShowProfile(c *gin.Context) {
	owner, err := accountService().GetProfile(c.Request.Context(), c.Param("username"))
	if errors.Is(err, services.ErrUserNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderServerError(c, err)
		return
	}

	isOwner := false
	if user := currentUser(c); user != nil {
		isOwner = user.ID == owner.ID
	}

	title := owner.Username
	if owner.Profile != nil {
		title = owner.Profile.DisplayName(owner.Username)
	}

	c.HTML(http.StatusOK, "profile.html", page(c, title, gin.H{
		"Owner":   owner,
		"IsOwner": isOwner,
	}))
}

// ShowEditProfile handles GET /profile/edit
func ShowEditProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	profile, err := loadProfile(c, user)
	if err != nil {
		renderServerError(c, err)
		return
	}

	c.HTML(http.StatusOK, "profile_edit.html", page(c, "Edit profile", gin.H{
		"Profile": profile,
	}))
}

// EditProfile handles POST /profile/edit
func EditProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var form ProfileForm
	if err := c.ShouldBind(&form); err != nil {
		profile, loadErr := loadProfile(c, user)
		if loadErr != nil {
			renderServerError(c, loadErr)
			return
		}
		c.HTML(http.StatusBadRequest, "profile_edit.html", page(c, "Edit profile", gin.H{
			"Profile": profile,
			"Error":   InvalidFormNotice,
		}))
		return
	}

	input := services.ProfileInput{Bio: form.Bio, Location: form.Location}
	if fileHeader, err := c.FormFile("avatar"); err == nil {
		input.Avatar = fileHeader
	}

	_, err := accountService().UpdateProfile(c.Request.Context(), user.ID, input)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if services.IsValidationError(err) || errors.As(err, &uploadErr) {
			c.HTML(http.StatusOK, "profile_edit.html", page(c, "Edit profile", gin.H{
				"Profile": &models.Profile{Bio: form.Bio, Location: form.Location},
				"Error":   err.Error(),
			}))
			return
		}
		renderServerError(c, err)
		return
	}

	middleware.SetFlash(c, middleware.FlashSuccess, ProfileUpdatedNotice)
	c.Redirect(http.StatusFound, "/profile/"+user.Username)
}

func loadProfile(c *gin.Context, user *models.User) (*models.Profile, error) {
	owner, err := accountService().GetProfile(c.Request.Context(), user.Username)
	if err != nil {
		return nil, err
	}
	if owner.Profile == nil {
		return &models.Profile{UserID: user.ID}, nil
	}
	return owner.Profile, nil
}

// CreateUser handles POST /api/v1/users - provisions an account for an
// Auth0 identity from the /userinfo endpoint
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		errorJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		errorJSON(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
		return
	}

	auth0Service := services.NewAuth0Service(config.GetConfig().Auth0Domain)
	userInfo, err := auth0Service.GetUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
		return
	}

	if userInfo.Email == "" {
		errorJSON(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided by Auth0")
		return
	}

	user, err := accountService().ProvisionExternal(c.Request.Context(), auth0ID, userInfo.Email, userInfo.Username())
	if err != nil {
		serviceErrorJSON(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    meResponse(user),
	})
}

// GetMyProfile handles GET /api/v1/users/me
func GetMyProfile(c *gin.Context) {
	user, ok := apiUser(c)
	if !ok {
		return
	}

	owner, err := accountService().GetProfile(c.Request.Context(), user.Username)
	if err != nil {
		serviceErrorJSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    meResponse(owner),
	})
}

// UpdateMyProfile handles PUT /api/v1/users/me
func UpdateMyProfile(c *gin.Context) {
	user, ok := apiUser(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
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

	profile, err := accountService().UpdateProfile(c.Request.Context(), user.ID, services.ProfileInput{
		Bio:      req.Bio,
		Location: req.Location,
	})
	if err != nil {
		serviceErrorJSON(c, err)
		return
	}

	user.Profile = profile
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    meResponse(user),
	})
}

// meResponse is the caller's own account, including the private email
func meResponse(user *models.User) gin.H {
	data := gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"profile":    user.Profile,
		"created_at": user.CreatedAt,
	}
	if user.Email != nil {
		data["email"] = *user.Email
	}
	return data
}
