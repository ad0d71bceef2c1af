package handler

import (
	"errors"
	"net/http"
	"strconv"
	"wisp/backend/internal/database"
	"wisp/backend/internal/hub"
	"wisp/backend/internal/models"
	"wisp/backend/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FriendRequestNotification is pushed over the hub when a request is sent or
// answered, so the other party sees it live without polling.
type FriendRequestNotification struct {
	UserID   uint                     `json:"userId"`
	Nickname string                   `json:"nickname"`
	Status   *models.FriendshipStatus `json:"status,omitempty"`
}

// pairEdge loads the friendship edge between two users regardless of
// orientation, mirroring the unordered-pair invariant on the table.
func pairEdge(a, b uint) (*models.Friendship, error) {
	var edge models.Friendship
	err := database.DB.
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)", a, b, b, a).
		First(&edge).Error
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

func notifyUser(userID uint, eventType string, payload FriendRequestNotification) {
	hub.GlobalHub.PublishToUser(userID, hub.Event{Type: eventType, Payload: payload})
}

// GetFriends godoc
// @Summary      List friends
// @Description  Fetches the authenticated user's accepted friends.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   PublicUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/friends [get]
func GetFriends(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var relations []models.Friendship
	err := database.DB.
		Where("status = ?", models.StatusAccepted).
		Where("requester_id = ? OR recipient_id = ?", viewerID, viewerID).
		Preload("Requester").Preload("Recipient").
		Find(&relations).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch friends"})
		return
	}

	userResponses := make([]PublicUserResponse, 0, len(relations))
	for _, r := range relations {
		// Pick whichever side of the edge is not the viewer.
		friend := r.Requester
		if r.RequesterID == viewerID.(uint) {
			friend = r.Recipient
		}
		if friend.ID == 0 {
			continue
		}
		userResponses = append(userResponses, buildPublicUserResponse(friend, viewerID.(uint)))
	}

	c.JSON(http.StatusOK, userResponses)
}

// GetPendingRequests godoc
// @Summary      List incoming friend requests
// @Description  Fetches pending friend requests addressed to the authenticated user.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   PublicUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/requests [get]
func GetPendingRequests(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var relations []models.Friendship
	err := database.DB.
		Where("recipient_id = ? AND status = ?", viewerID, models.StatusPending).
		Preload("Requester").
		Find(&relations).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch requests"})
		return
	}

	userResponses := make([]PublicUserResponse, 0, len(relations))
	for _, r := range relations {
		if r.Requester.ID == 0 {
			continue
		}
		userResponses = append(userResponses, buildPublicUserResponse(r.Requester, viewerID.(uint)))
	}

	c.JSON(http.StatusOK, userResponses)
}

// SendRequest godoc
// @Summary      Send friend request
// @Description  Sends a friend request to another user and notifies them live.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      201  {object}  map[string]string "{"message": "Request sent successfully"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Failure      409  {object}  ErrorResponse "Relation already exists"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/request [post]
func SendRequest(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	if viewerID.(uint) == uint(targetUserID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot send request to yourself"})
		return
	}

	var requester models.User
	if err := database.DB.First(&requester, viewerID.(uint)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var targetUser models.User
	if err := database.DB.First(&targetUser, uint(targetUserID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target user not found"})
		return
	}

	// One edge per unordered pair: refuse if any edge already exists.
	if _, err := pairEdge(viewerID.(uint), uint(targetUserID)); !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusConflict, gin.H{"error": "Relation already exists or another error occurred"})
		return
	}

	newRelation := models.Friendship{
		RequesterID: viewerID.(uint),
		RecipientID: uint(targetUserID),
		Status:      models.StatusPending,
	}

	if err := database.DB.Create(&newRelation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create relation"})
		return
	}

	notifyUser(uint(targetUserID), realtime.EventFriendRequestReceived, FriendRequestNotification{
		UserID:   requester.ID,
		Nickname: requester.Nickname,
	})

	c.JSON(http.StatusCreated, gin.H{"message": "Request sent successfully"})
}

// AcceptRequest godoc
// @Summary      Accept friend request
// @Description  Accepts a pending friend request from another user.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  map[string]string "{"message": "Request accepted"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/accept [post]
func AcceptRequest(c *gin.Context) {
	respondToRequest(c, models.StatusAccepted, "Request accepted")
}

// DeclineRequest godoc
// @Summary      Decline friend request
// @Description  Declines a pending friend request from another user. The edge is kept with declined status.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  map[string]string "{"message": "Request declined"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/decline [post]
func DeclineRequest(c *gin.Context) {
	respondToRequest(c, models.StatusDeclined, "Request declined")
}

func respondToRequest(c *gin.Context, status models.FriendshipStatus, message string) {
	viewerID, _ := c.Get("userID")
	requestingUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid requesting user ID"})
		return
	}

	// Find the pending request
	var request models.Friendship
	err = database.DB.
		Where("requester_id = ? AND recipient_id = ? AND status = ?", requestingUserID, viewerID, models.StatusPending).
		First(&request).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pending request not found"})
		return
	}

	if err := database.DB.Model(&request).Update("status", status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request"})
		return
	}

	var responder models.User
	database.DB.First(&responder, viewerID.(uint))

	notifyUser(uint(requestingUserID), realtime.EventFriendRequestResponse, FriendRequestNotification{
		UserID:   responder.ID,
		Nickname: responder.Nickname,
		Status:   &status,
	})

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// BlockUser godoc
// @Summary      Block a user
// @Description  Blocks another user. Any existing edge is overwritten; blocked pairs cannot message each other.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  map[string]string "{"message": "User blocked"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/block [post]
func BlockUser(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	if viewerID.(uint) == uint(targetUserID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot block yourself"})
		return
	}

	edge, err := pairEdge(viewerID.(uint), uint(targetUserID))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		edge = &models.Friendship{
			RequesterID: viewerID.(uint),
			RecipientID: uint(targetUserID),
			Status:      models.StatusBlocked,
		}
		err = database.DB.Create(edge).Error
	case err == nil:
		err = database.DB.Model(edge).Update("status", models.StatusBlocked).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to block user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User blocked"})
}

// RemoveRelation godoc
// @Summary      Remove relation
// @Description  Cancels a sent request, or removes a user from friends.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  map[string]string "{"message": "Relation removed"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Relation not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/remove [post]
func RemoveRelation(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	result := database.DB.
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)",
			viewerID, targetUserID, targetUserID, viewerID).
		Delete(&models.Friendship{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove relation"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relation not found to remove"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Relation removed"})
}
