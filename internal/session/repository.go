package session

import (
	"time"

	"quizfunnel/internal/models"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateSession(session *models.RespondentSession) error {
	return r.db.Create(session).Error
}

func (r *Repository) GetSession(sessionID uint) (*models.RespondentSession, error) {
	var session models.RespondentSession
	err := r.db.First(&session, sessionID).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *Repository) GetQuiz(quizID uint) (*models.QuizDefinition, error) {
	var quiz models.QuizDefinition
	err := r.db.First(&quiz, quizID).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *Repository) GetQuestion(questionID uint) (*models.Question, error) {
	var question models.Question
	err := r.db.First(&question, questionID).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *Repository) GetOption(optionID uint) (*models.AnswerOption, error) {
	var option models.AnswerOption
	err := r.db.First(&option, optionID).Error
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *Repository) CreateResponse(record *models.ResponseRecord) error {
	return r.db.Create(record).Error
}

// CountActiveQuestionsAfter reports how many active questions come after the
// given sequence order; zero means the respondent just answered the last one.
func (r *Repository) CountActiveQuestionsAfter(quizID uint, sequenceOrder int) (int64, error) {
	var count int64
	err := r.db.Model(&models.Question{}).
		Where("quiz_id = ? AND archived = ? AND sequence_order > ?", quizID, false, sequenceOrder).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountActiveQuestions(quizID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Question{}).
		Where("quiz_id = ? AND archived = ?", quizID, false).
		Count(&count).Error
	return count, err
}

func (r *Repository) CompleteSession(sessionID uint) error {
	now := time.Now()
	return r.db.Model(&models.RespondentSession{}).
		Where("id = ?", sessionID).
		Update("completed_at", &now).Error
}
