package quiz

import (
	"log"

	"quizfunnel/internal/models"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateQuizTree inserts a new quiz with its initial tree in one shot; gorm
// cascades the nested questions and options.
func (r *Repository) CreateQuizTree(quiz *models.QuizDefinition) error {
	err := r.db.Create(quiz).Error
	if err != nil {
		log.Printf("Error creating quiz: %v", err)
		return err
	}
	log.Printf("Created quiz %d with %d questions", quiz.ID, len(quiz.Questions))
	return nil
}

func (r *Repository) GetQuizByID(quizID uint) (*models.QuizDefinition, error) {
	var quiz models.QuizDefinition
	err := r.db.First(&quiz, quizID).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// GetActiveTree loads the quiz with its active questions in display order,
// each carrying its active options. Archived rows stay out of the result.
func (r *Repository) GetActiveTree(quizID uint) (*models.QuizDefinition, error) {
	var quiz models.QuizDefinition
	err := r.db.First(&quiz, quizID).Error
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	err = r.db.Where("quiz_id = ? AND archived = ?", quizID, false).
		Order("sequence_order asc").
		Preload("Options", "archived = ?", false).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}

	quiz.Questions = questions
	return &quiz, nil
}

func (r *Repository) ListByUser(userID uint) ([]models.QuizDefinition, error) {
	var quizzes []models.QuizDefinition
	err := r.db.Where("user_id = ?", userID).Find(&quizzes).Error
	if err != nil {
		log.Printf("Error listing quizzes for user %d: %v", userID, err)
		return nil, err
	}
	return quizzes, nil
}

func (r *Repository) ListByShop(shopID uint) ([]models.QuizDefinition, error) {
	var quizzes []models.QuizDefinition
	err := r.db.Where("shop_id = ?", shopID).Find(&quizzes).Error
	if err != nil {
		log.Printf("Error listing quizzes for shop %d: %v", shopID, err)
		return nil, err
	}
	return quizzes, nil
}

// DeleteQuizTree destroys a quiz and everything under it: questions,
// options, respondent sessions and their answer trail. Reconciliation only
// ever archives; this is the one place rows actually go away.
func (r *Repository) DeleteQuizTree(quizID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		err := tx.Model(&models.Question{}).
			Where("quiz_id = ?", quizID).
			Pluck("id", &questionIDs).Error
		if err != nil {
			return err
		}

		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.AnswerOption{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.ResponseRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.RespondentSession{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.QuizDefinition{}, quizID).Error
	})
}
