package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wisp/backend/internal/auth"
	"wisp/backend/internal/config"
	"wisp/backend/internal/database"
	"wisp/backend/internal/hub"
	"wisp/backend/internal/presence"
	"wisp/backend/internal/realtime"
	"wisp/backend/internal/store"
)

var router *gin.Engine

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "test-secret", PostTTLHours: 24}

	database.ConnectWithDialector(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})

	users := store.NewUserStore(database.DB)
	registry := presence.NewRegistry(users, hub.GlobalHub)
	Chat = realtime.NewController(
		store.NewFriendshipStore(database.DB),
		store.NewMessageStore(database.DB),
		users,
		registry,
		hub.GlobalHub,
	)

	router = gin.New()
	apiV1 := router.Group("/api/v1")
	apiV1.POST("/auth/register", RegisterUser)
	apiV1.POST("/auth/login", LoginUser)

	userRoutes := apiV1.Group("/users")
	userRoutes.Use(auth.AuthMiddleware())
	userRoutes.GET("/me", GetMe)
	userRoutes.GET("/me/friends", GetFriends)
	userRoutes.GET("/me/requests", GetPendingRequests)
	userRoutes.POST("/:id/request", SendRequest)
	userRoutes.POST("/:id/accept", AcceptRequest)
	userRoutes.POST("/:id/decline", DeclineRequest)
	userRoutes.POST("/:id/block", BlockUser)
	userRoutes.GET("/:id/posts", GetUserPosts)

	messageRoutes := apiV1.Group("/messages")
	messageRoutes.Use(auth.AuthMiddleware())
	messageRoutes.POST("", SendMessage)
	messageRoutes.GET("/:id", GetConversation)
	messageRoutes.POST("/:id/read", MarkConversationRead)

	postRoutes := apiV1.Group("/posts")
	postRoutes.Use(auth.AuthMiddleware())
	postRoutes.POST("", CreatePost)
	postRoutes.GET("/feed", GetFeed)
	postRoutes.DELETE("/:id", DeletePost)

	os.Exit(m.Run())
}

func doRequest(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to decode response %s: %v", recorder.Body.String(), err)
	}
}

// registerUser creates an account and returns its token and id.
func registerUser(t *testing.T, nickname string) (string, uint) {
	t.Helper()

	recorder := doRequest(t, http.MethodPost, "/api/v1/auth/register", "", RegisterInput{
		Nickname: nickname,
		Email:    nickname + "@example.com",
		Password: "password123",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("Register %s returned %d: %s", nickname, recorder.Code, recorder.Body.String())
	}

	var tokenResponse map[string]string
	decodeBody(t, recorder, &tokenResponse)
	token := tokenResponse["token"]

	recorder = doRequest(t, http.MethodGet, "/api/v1/users/me", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("GetMe returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var me PrivateUserResponse
	decodeBody(t, recorder, &me)

	return token, me.ID
}

func befriend(t *testing.T, tokenA string, idA uint, tokenB string, idB uint) {
	t.Helper()
	if recorder := doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/request", idB), tokenA, nil); recorder.Code != http.StatusCreated {
		t.Fatalf("SendRequest returned %d: %s", recorder.Code, recorder.Body.String())
	}
	if recorder := doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/accept", idA), tokenB, nil); recorder.Code != http.StatusOK {
		t.Fatalf("AcceptRequest returned %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	recorder := doRequest(t, http.MethodGet, "/api/v1/users/me", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", recorder.Code)
	}
}

func TestFriendRequestLifecycle(t *testing.T) {
	aliceToken, aliceID := registerUser(t, "lifecycle_alice")
	bobToken, bobID := registerUser(t, "lifecycle_bob")

	if recorder := doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/request", bobID), aliceToken, nil); recorder.Code != http.StatusCreated {
		t.Fatalf("SendRequest returned %d: %s", recorder.Code, recorder.Body.String())
	}

	// Duplicate requests (either direction) are refused.
	if recorder := doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/request", aliceID), bobToken, nil); recorder.Code != http.StatusConflict {
		t.Errorf("Duplicate request returned %d, want 409", recorder.Code)
	}

	recorder := doRequest(t, http.MethodGet, "/api/v1/users/me/requests", bobToken, nil)
	var pending []PublicUserResponse
	decodeBody(t, recorder, &pending)
	if len(pending) != 1 || pending[0].ID != aliceID {
		t.Fatalf("Pending requests = %+v, want just alice", pending)
	}

	if recorder := doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/accept", aliceID), bobToken, nil); recorder.Code != http.StatusOK {
		t.Fatalf("AcceptRequest returned %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, http.MethodGet, "/api/v1/users/me/friends", aliceToken, nil)
	var friends []PublicUserResponse
	decodeBody(t, recorder, &friends)
	if len(friends) != 1 || friends[0].ID != bobID {
		t.Fatalf("Friends = %+v, want just bob", friends)
	}
}

func TestDeclineKeepsEdge(t *testing.T) {
	aliceToken, aliceID := registerUser(t, "decline_alice")
	bobToken, bobID := registerUser(t, "decline_bob")

	doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/request", bobID), aliceToken, nil)
	if recorder := doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/decline", aliceID), bobToken, nil); recorder.Code != http.StatusOK {
		t.Fatalf("DeclineRequest returned %d: %s", recorder.Code, recorder.Body.String())
	}

	// The declined edge still occupies the unordered pair.
	if recorder := doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/request", bobID), aliceToken, nil); recorder.Code != http.StatusConflict {
		t.Errorf("Request after decline returned %d, want 409", recorder.Code)
	}
}

func TestMessageFallbackRequiresFriendship(t *testing.T) {
	aliceToken, _ := registerUser(t, "gate_alice")
	_, strangerID := registerUser(t, "gate_stranger")

	recorder := doRequest(t, http.MethodPost, "/api/v1/messages", aliceToken, SendMessageInput{
		RecipientID: strangerID,
		Content:     "hello?",
	})
	if recorder.Code != http.StatusForbidden {
		t.Errorf("Send to a non-friend returned %d, want 403", recorder.Code)
	}
}

func TestMessageFallbackRoundTrip(t *testing.T) {
	aliceToken, aliceID := registerUser(t, "msg_alice")
	bobToken, bobID := registerUser(t, "msg_bob")
	befriend(t, aliceToken, aliceID, bobToken, bobID)

	recorder := doRequest(t, http.MethodPost, "/api/v1/messages", aliceToken, SendMessageInput{
		RecipientID: bobID,
		Content:     "hi bob",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("SendMessage returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var sent MessageResponse
	decodeBody(t, recorder, &sent)
	if sent.ID == 0 || sent.SenderID != aliceID || sent.IsRead {
		t.Errorf("Sent message = %+v, want a persisted unread record from alice", sent)
	}

	recorder = doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/messages/%d", aliceID), bobToken, nil)
	var conversation []MessageResponse
	decodeBody(t, recorder, &conversation)
	if len(conversation) != 1 || conversation[0].Content != "hi bob" {
		t.Fatalf("Conversation = %+v, want the single message", conversation)
	}

	if recorder = doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/messages/%d/read", aliceID), bobToken, nil); recorder.Code != http.StatusOK {
		t.Fatalf("MarkConversationRead returned %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/messages/%d", bobID), aliceToken, nil)
	decodeBody(t, recorder, &conversation)
	if len(conversation) != 1 || !conversation[0].IsRead {
		t.Errorf("Conversation after read = %+v, want the message flagged read", conversation)
	}
}

func TestFeedShowsOwnAndFriendPosts(t *testing.T) {
	aliceToken, aliceID := registerUser(t, "feed_alice")
	bobToken, bobID := registerUser(t, "feed_bob")
	_, _ = registerUser(t, "feed_carol")
	befriend(t, aliceToken, aliceID, bobToken, bobID)

	if recorder := doRequest(t, http.MethodPost, "/api/v1/posts", aliceToken, CreatePostInput{Content: "from alice"}); recorder.Code != http.StatusCreated {
		t.Fatalf("CreatePost returned %d: %s", recorder.Code, recorder.Body.String())
	}
	if recorder := doRequest(t, http.MethodPost, "/api/v1/posts", bobToken, CreatePostInput{Content: "from bob"}); recorder.Code != http.StatusCreated {
		t.Fatalf("CreatePost returned %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder := doRequest(t, http.MethodGet, "/api/v1/posts/feed", aliceToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("GetFeed returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var feed PaginatedResponse[PostResponse]
	decodeBody(t, recorder, &feed)
	if len(feed.Data) != 2 {
		t.Fatalf("Feed has %d posts, want alice's and bob's", len(feed.Data))
	}

	// Posts from non-friends stay out of the feed.
	carolToken, _ := registerUser(t, "feed_dave")
	recorder = doRequest(t, http.MethodGet, "/api/v1/posts/feed", carolToken, nil)
	decodeBody(t, recorder, &feed)
	if len(feed.Data) != 0 {
		t.Errorf("A friendless user's feed should be empty, got %d posts", len(feed.Data))
	}
}

func TestDeletePostOwnerOnly(t *testing.T) {
	aliceToken, _ := registerUser(t, "del_alice")
	bobToken, _ := registerUser(t, "del_bob")

	recorder := doRequest(t, http.MethodPost, "/api/v1/posts", aliceToken, CreatePostInput{Content: "mine"})
	var post PostResponse
	decodeBody(t, recorder, &post)

	if recorder := doRequest(t, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", post.ID), bobToken, nil); recorder.Code != http.StatusNotFound {
		t.Errorf("Deleting someone else's post returned %d, want 404", recorder.Code)
	}
	if recorder := doRequest(t, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", post.ID), aliceToken, nil); recorder.Code != http.StatusOK {
		t.Errorf("Deleting own post returned %d, want 200", recorder.Code)
	}
}
