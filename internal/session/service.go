package session

import (
	"errors"
	"log"

	"quizfunnel/internal/models"
	"quizfunnel/pkg/websocket"

	"gorm.io/gorm"
)

var (
	// ErrQuizNotFound is returned when the quiz does not exist or has no
	// active questions to take.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned for an unknown session identity.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuestionNotFound is returned when the answered question does not
	// belong to the session's quiz or is archived.
	ErrQuestionNotFound = errors.New("question not found in this quiz")
	// ErrOptionNotFound is returned when the chosen option does not belong
	// to the answered question.
	ErrOptionNotFound = errors.New("option not found for this question")
)

type Service struct {
	repo  *Repository
	wsHub *websocket.Hub
}

func NewService(repo *Repository, wsHub *websocket.Hub) *Service {
	return &Service{repo: repo, wsHub: wsHub}
}

// StartSession opens a new respondent session against a quiz that has at
// least one active question.
func (s *Service) StartSession(quizID uint, visitorKey string) (*models.RespondentSession, error) {
	if _, err := s.repo.GetQuiz(quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	active, err := s.repo.CountActiveQuestions(quizID)
	if err != nil {
		return nil, err
	}
	if active == 0 {
		return nil, ErrQuizNotFound
	}

	session := &models.RespondentSession{
		QuizID:     quizID,
		VisitorKey: visitorKey,
	}
	if err := s.repo.CreateSession(session); err != nil {
		return nil, err
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastEvent(quizID, "session_started", map[string]interface{}{
			"session_id":  session.ID,
			"visitor_key": session.VisitorKey,
		})
	}
	return session, nil
}

// RecordAnswer appends one answer to the session's trail. The answered
// question must be an active question of the session's quiz; a chosen option
// must belong to that question. Answering the last active question marks the
// session complete.
func (s *Service) RecordAnswer(sessionID uint, questionID uint, optionID *uint, freeText string) (*models.ResponseRecord, error) {
	session, err := s.repo.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	question, err := s.repo.GetQuestion(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	if question.QuizID != session.QuizID || question.Archived {
		return nil, ErrQuestionNotFound
	}

	record := &models.ResponseRecord{
		SessionID:  session.ID,
		QuizID:     session.QuizID,
		QuestionID: question.ID,
		FreeText:   freeText,
	}

	var slug string
	if optionID != nil {
		option, err := s.repo.GetOption(*optionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrOptionNotFound
			}
			return nil, err
		}
		if option.QuestionID != question.ID {
			return nil, ErrOptionNotFound
		}
		record.AnswerOptionID = &option.ID
		slug = option.Slug
	}

	if err := s.repo.CreateResponse(record); err != nil {
		return nil, err
	}

	remaining, err := s.repo.CountActiveQuestionsAfter(session.QuizID, question.SequenceOrder)
	if err != nil {
		log.Printf("Error checking remaining questions for session %d: %v", session.ID, err)
	} else if remaining == 0 && session.CompletedAt == nil {
		if err := s.repo.CompleteSession(session.ID); err != nil {
			log.Printf("Error completing session %d: %v", session.ID, err)
		}
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastEvent(session.QuizID, "answer_recorded", map[string]interface{}{
			"session_id":       session.ID,
			"question_id":      question.ID,
			"associated_value": slug,
		})
	}
	return record, nil
}
