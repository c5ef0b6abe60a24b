package database

import (
	"fmt"

	"quizfunnel/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func NewPostgresDB(config *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		config.Host,
		config.User,
		config.Password,
		config.DBName,
		config.Port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema plus the partial unique index that enforces
// sequence-order uniqueness among a quiz's active questions. The index is
// partial so archived rows keep their historical order without colliding.
// Works against postgres and sqlite (tests) alike.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.QuizDefinition{},
		&models.Question{},
		&models.AnswerOption{},
		&models.RespondentSession{},
		&models.ResponseRecord{},
	)
	if err != nil {
		return err
	}

	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_questions_active_sequence
		 ON questions (quiz_id, sequence_order) WHERE archived = false`,
	).Error
}
