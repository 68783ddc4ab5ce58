package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/marketplace/middleware"
	"github.com/kendall-kelly/marketplace/services"
)

// MessageSentNotice is flashed after a successful send
const MessageSentNotice = "Your message has been sent to the seller!"

// MessageForm is the message box on the item detail page
type MessageForm struct {
	Body string `form:"body"`
}

// SendMessageRequest represents the JSON body for sending a message
type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// SendMessage handles POST /item/:id/message. Every outcome except an
// unknown item redirects back to the item page.
func SendMessage(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	itemID, ok := parseID(c, "id")
	if !ok {
		renderNotFound(c)
		return
	}
	itemURL := fmt.Sprintf("/item/%d", itemID)

	var form MessageForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusFound, itemURL)
		return
	}

	_, err := messagingService().Send(c.Request.Context(), itemID, user, form.Body)
	switch {
	case err == nil:
		middleware.SetFlash(c, middleware.FlashSuccess, MessageSentNotice)
	case errors.Is(err, services.ErrItemNotFound):
		renderNotFound(c)
		return
	case errors.Is(err, services.ErrSelfMessaging), errors.Is(err, services.ErrNoRecipient):
		middleware.SetFlash(c, middleware.FlashError, err.Error())
	case services.IsValidationError(err):
		// invalid bodies redirect without a notice
	default:
		renderServerError(c, err)
		return
	}

	c.Redirect(http.StatusFound, itemURL)
}

// Inbox handles GET /inbox. Loading the page marks every received message as read.
func Inbox(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	inbox, err := messagingService().Inbox(c.Request.Context(), user)
	if err != nil {
		renderServerError(c, err)
		return
	}

	c.HTML(http.StatusOK, "inbox.html", page(c, "Inbox", gin.H{
		"Inbox": inbox,
	}))
}

// SendMessageAPI handles POST /api/v1/items/:id/messages
func SendMessageAPI(c *gin.Context) {
	user, ok := apiUser(c)
	if !ok {
		return
	}

	itemID, ok := parseID(c, "id")
	if !ok {
		errorJSON(c, http.StatusNotFound, services.ErrItemNotFound.Code, services.ErrItemNotFound.Message)
		return
	}

	var req SendMessageRequest
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

	message, err := messagingService().Send(c.Request.Context(), itemID, user, req.Body)
	if err != nil {
		serviceErrorJSON(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}

// InboxAPI handles GET /api/v1/inbox; like the page it marks received messages read
func InboxAPI(c *gin.Context) {
	user, ok := apiUser(c)
	if !ok {
		return
	}

	inbox, err := messagingService().Inbox(c.Request.Context(), user)
	if err != nil {
		serviceErrorJSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    inbox,
	})
}
