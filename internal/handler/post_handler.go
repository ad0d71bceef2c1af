package handler

import (
	"net/http"
	"strconv"
	"time"
	"wisp/backend/internal/config"
	"wisp/backend/internal/database"
	"wisp/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// CreatePostInput defines the structure for creating an ephemeral post.
type CreatePostInput struct {
	Content   string `json:"content" binding:"required" example:"still awake"`
	MediaPath string `json:"media_path" example:"uploads/abc.jpg"`
	MediaType string `json:"media_type" example:"image"`
}

// PostResponse defines the structure for a post in feed and profile views.
type PostResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Nickname  string    `json:"nickname"`
	Content   string    `json:"content"`
	MediaPath string    `json:"media_path,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// endregion

func buildPostResponse(post models.Post) PostResponse {
	return PostResponse{
		ID:        post.ID,
		UserID:    post.UserID,
		Nickname:  post.User.Nickname,
		Content:   post.Content,
		MediaPath: post.MediaPath,
		MediaType: post.MediaType,
		CreatedAt: post.CreatedAt,
		ExpiresAt: post.ExpiresAt,
	}
}

// CreatePost godoc
// @Summary      Create an ephemeral post
// @Description  Creates a post that expires after the configured TTL.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CreatePostInput true "Post"
// @Success      201  {object}  PostResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /posts [post]
func CreatePost(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var input CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := models.Post{
		UserID:    viewerID.(uint),
		Content:   input.Content,
		MediaPath: input.MediaPath,
		MediaType: input.MediaType,
		ExpiresAt: time.Now().Add(time.Duration(config.AppConfig.PostTTLHours) * time.Hour),
	}
	if err := database.DB.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	database.DB.Preload("User").First(&post, post.ID)
	c.JSON(http.StatusCreated, buildPostResponse(post))
}

// GetFeed godoc
// @Summary      Get the feed
// @Description  Returns unexpired posts from the authenticated user and their accepted friends, newest first.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page" default(20)
// @Success      200   {object}  PaginatedResponse[PostResponse]
// @Failure      401   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /posts/feed [get]
func GetFeed(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	// Feed scope: self plus accepted friends.
	authorIDs := []uint{viewerID.(uint)}
	var edges []models.Friendship
	if err := database.DB.
		Where("status = ?", models.StatusAccepted).
		Where("requester_id = ? OR recipient_id = ?", viewerID, viewerID).
		Find(&edges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch friends"})
		return
	}
	for _, edge := range edges {
		if edge.RequesterID == viewerID.(uint) {
			authorIDs = append(authorIDs, edge.RecipientID)
		} else {
			authorIDs = append(authorIDs, edge.RequesterID)
		}
	}

	query := database.DB.Model(&models.Post{}).
		Where("user_id IN ?", authorIDs).
		Where("expires_at > ?", time.Now())

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count posts"})
		return
	}

	var posts []models.Post
	if err := query.Preload("User").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	postResponses := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		postResponses = append(postResponses, buildPostResponse(post))
	}

	c.JSON(http.StatusOK, NewPaginatedResponse(postResponses, totalItems, page, limit))
}

// GetUserPosts godoc
// @Summary      Get a user's posts
// @Description  Returns a user's unexpired posts, newest first.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int  true   "User ID"
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page" default(20)
// @Success      200   {object}  PaginatedResponse[PostResponse]
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /users/{id}/posts [get]
func GetUserPosts(c *gin.Context) {
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	query := database.DB.Preload("User").
		Where("user_id = ? AND expires_at > ?", uint(targetUserID), time.Now()).
		Order("created_at DESC")

	paginated, err := Paginate[models.Post](query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	postResponses := make([]PostResponse, 0, len(paginated.Data))
	for _, post := range paginated.Data {
		postResponses = append(postResponses, buildPostResponse(post))
	}

	c.JSON(http.StatusOK, PaginatedResponse[PostResponse]{Data: postResponses, Meta: paginated.Meta})
}

// DeletePost godoc
// @Summary      Delete a post
// @Description  Deletes one of the authenticated user's own posts before it expires.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  map[string]string "{"message": "Post deleted"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id} [delete]
func DeletePost(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	result := database.DB.
		Where("id = ? AND user_id = ?", uint(postID), viewerID).
		Delete(&models.Post{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// SweepExpiredPosts hard-deletes posts past their expiry. Run periodically
// from main; the feed queries filter on expires_at as well, so a post never
// outlives its TTL even between sweeps.
func SweepExpiredPosts() (int64, error) {
	result := database.DB.Unscoped().
		Where("expires_at <= ?", time.Now()).
		Delete(&models.Post{})
	return result.RowsAffected, result.Error
}
