package database

import (
	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.InviteLink{},
		&models.InviteUse{},
		&models.Relation{},
		&models.Lesson{},
		&models.Board{},
		&models.Attachment{},
		&models.ChatMessage{},
	)
}
