package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"wisp/backend/internal/auth"
	"wisp/backend/internal/config"
	"wisp/backend/internal/database"
	"wisp/backend/internal/handler"
	"wisp/backend/internal/hub"
	"wisp/backend/internal/presence"
	"wisp/backend/internal/realtime"
	"wisp/backend/internal/store"

	"github.com/gin-gonic/gin"

	// Swagger imports
	_ "wisp/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           Wisp API
// @version         1.0
// @description     This is the API for the Wisp service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	// Connect to the database
	database.Connect(config.AppConfig.DatabaseURL)

	// Wire the realtime core: stores -> presence registry -> session controller.
	users := store.NewUserStore(database.DB)
	registry := presence.NewRegistry(users, hub.GlobalHub)
	handler.Chat = realtime.NewController(
		store.NewFriendshipStore(database.DB),
		store.NewMessageStore(database.DB),
		users,
		registry,
		hub.GlobalHub,
	)

	// Sweep expired posts in the background.
	go func() {
		for range time.Tick(10 * time.Minute) {
			if swept, err := handler.SweepExpiredPosts(); err != nil {
				log.Printf("Post sweep failed: %v", err)
			} else if swept > 0 {
				log.Printf("Swept %d expired posts", swept)
			}
		}
	}()

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Realtime endpoint; a token is optional here since the socket
	// identifies itself in-protocol.
	router.GET("/ws", auth.OptionalAuthMiddleware(), handler.ServeWS)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("", handler.SearchUsers) // Must be before /:id
			userRoutes.GET("/me", handler.GetMe)
			userRoutes.GET("/me/friends", handler.GetFriends)
			userRoutes.GET("/me/requests", handler.GetPendingRequests)
			userRoutes.GET("/:id", handler.GetUserByID)
			userRoutes.GET("/:id/posts", handler.GetUserPosts)

			// Friendship routes
			userRoutes.POST("/:id/request", handler.SendRequest)
			userRoutes.POST("/:id/accept", handler.AcceptRequest)
			userRoutes.POST("/:id/decline", handler.DeclineRequest)
			userRoutes.POST("/:id/block", handler.BlockUser)
			userRoutes.POST("/:id/remove", handler.RemoveRelation)
		}

		// Message routes (protected) - non-realtime fallback for the socket protocol
		messageRoutes := apiV1.Group("/messages")
		messageRoutes.Use(auth.AuthMiddleware())
		{
			messageRoutes.POST("", handler.SendMessage)
			messageRoutes.GET("/:id", handler.GetConversation)
			messageRoutes.POST("/:id/read", handler.MarkConversationRead)
		}

		// Post routes (protected)
		postRoutes := apiV1.Group("/posts")
		postRoutes.Use(auth.AuthMiddleware())
		{
			postRoutes.POST("", handler.CreatePost)
			postRoutes.GET("/feed", handler.GetFeed)
			postRoutes.DELETE("/:id", handler.DeletePost)
		}
	}

	fmt.Printf("Server is running on %s\n", config.AppConfig.ServerAddr)
	fmt.Println("Swagger UI is available at http://localhost:8080/swagger/index.html")
	log.Fatal(router.Run(config.AppConfig.ServerAddr))
}
