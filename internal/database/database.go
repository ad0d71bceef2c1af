package database

import (
	"log"
	"os"
	"time"
	"wisp/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) {
	// Configure GORM logger
	customLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             200 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Warn,            // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,                   // Enable color
		},
	)

	ConnectWithDialector(postgres.Open(dsn), &gorm.Config{
		Logger: customLogger,
	})
}

// ConnectWithDialector opens the database with an arbitrary dialector and runs
// migrations. Tests use it with an in-memory sqlite dialector.
func ConnectWithDialector(dialector gorm.Dialector, cfg *gorm.Config) {
	var err error

	DB, err = gorm.Open(dialector, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established.")

	// Run migrations
	err = DB.AutoMigrate(&models.User{}, &models.Friendship{}, &models.Message{}, &models.Post{})
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migrated successfully.")
}
