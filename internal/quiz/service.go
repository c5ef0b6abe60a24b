package quiz

import (
	"context"
	"errors"
	"log"

	"quizfunnel/internal/models"
	"quizfunnel/internal/publish"
	"quizfunnel/internal/reconcile"
	"quizfunnel/pkg/cache"
	"quizfunnel/pkg/websocket"

	"gorm.io/gorm"
)

type Service struct {
	repo      *Repository
	engine    *reconcile.Engine
	cache     *cache.RedisCache
	wsHub     *websocket.Hub
	publisher publish.Publisher
}

func NewService(repo *Repository, engine *reconcile.Engine, cache *cache.RedisCache, wsHub *websocket.Hub, publisher publish.Publisher) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		cache:     cache,
		wsHub:     wsHub,
		publisher: publisher,
	}
}

// CreateQuiz validates the initial tree and inserts every row fresh. Later
// edits go through UpdateQuiz, which reconciles against persisted state
// instead of recreating rows.
func (s *Service) CreateQuiz(ctx context.Context, payload *models.QuizPayload, actor reconcile.Actor) (*models.QuizDefinition, error) {
	if err := reconcile.ValidatePayload(payload); err != nil {
		return nil, err
	}
	if len(payload.Questions) == 0 {
		return nil, &reconcile.Error{Kind: reconcile.KindEmptyActiveSet, Detail: "a quiz requires at least one question"}
	}

	quiz := buildTree(payload, actor)
	if err := s.repo.CreateQuizTree(quiz); err != nil {
		return nil, &reconcile.Error{Kind: reconcile.KindStorageFailure, Detail: "storage operation failed"}
	}

	s.afterWrite(quiz, "quiz_created")
	return quiz, nil
}

// UpdateQuiz merges the submitted tree into persisted state through the
// reconciliation engine, then invalidates the respondent cache and kicks off
// the best-effort downstream publish.
func (s *Service) UpdateQuiz(ctx context.Context, quizID uint, payload *models.QuizPayload, actor reconcile.Actor) (*models.QuizDefinition, error) {
	quiz, err := s.engine.Reconcile(ctx, quizID, payload, actor)
	if err != nil {
		return nil, err
	}

	s.afterWrite(quiz, "quiz_updated")
	return quiz, nil
}

func (s *Service) GetQuiz(quizID uint, actor reconcile.Actor) (*models.QuizDefinition, error) {
	quiz, err := s.repo.GetActiveTree(quizID)
	if err != nil {
		return nil, mapStorageErr(err, quizID)
	}
	if err := reconcile.Authorize(quiz, actor); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *Service) ListQuizzes(actor reconcile.Actor) ([]models.QuizDefinition, error) {
	if actor.ShopID != 0 {
		return s.repo.ListByShop(actor.ShopID)
	}
	return s.repo.ListByUser(actor.UserID)
}

func (s *Service) DeleteQuiz(quizID uint, actor reconcile.Actor) error {
	quiz, err := s.repo.GetQuizByID(quizID)
	if err != nil {
		return mapStorageErr(err, quizID)
	}
	if err := reconcile.Authorize(quiz, actor); err != nil {
		return err
	}

	if err := s.repo.DeleteQuizTree(quizID); err != nil {
		log.Printf("Error deleting quiz %d: %v", quizID, err)
		return &reconcile.Error{Kind: reconcile.KindStorageFailure, Detail: "storage operation failed"}
	}

	if err := s.cache.InvalidateQuiz(quizID); err != nil {
		log.Printf("Error invalidating cache for quiz %d: %v", quizID, err)
	}
	return nil
}

// GetPublicQuiz serves the respondent-facing view, cache first.
func (s *Service) GetPublicQuiz(quizID uint) (*models.QuizView, error) {
	view, err := s.cache.GetQuizView(quizID)
	if err == nil {
		return view, nil
	}

	quiz, err := s.repo.GetActiveTree(quizID)
	if err != nil {
		return nil, mapStorageErr(err, quizID)
	}

	fresh := quiz.ToView()
	if err := s.cache.SetQuizView(&fresh); err != nil {
		log.Printf("Error caching quiz %d: %v", quizID, err)
	}
	return &fresh, nil
}

// afterWrite handles everything outside the transaction's atomicity
// boundary: cache invalidation, the builder event feed and the downstream
// platform publish. Publish failures are logged and never surface to the
// caller.
func (s *Service) afterWrite(quiz *models.QuizDefinition, event string) {
	if err := s.cache.InvalidateQuiz(quiz.ID); err != nil {
		log.Printf("Error invalidating cache for quiz %d: %v", quiz.ID, err)
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastEvent(quiz.ID, event, quiz.ToView())
	}

	if s.publisher != nil {
		go func(q models.QuizDefinition) {
			if err := s.publisher.PublishQuiz(context.Background(), &q); err != nil {
				log.Printf("Publish failed for quiz %d (non-fatal): %v", q.ID, err)
			}
		}(*quiz)
	}
}

func buildTree(payload *models.QuizPayload, actor reconcile.Actor) *models.QuizDefinition {
	quiz := &models.QuizDefinition{
		Name:           payload.QuizName,
		ProductPageURL: payload.ProductPageURL,
		Headline:       payload.Headline,
		ButtonLabel:    payload.ButtonLabel,
		AccentColor:    payload.AccentColor,
	}
	if actor.ShopID != 0 {
		shopID := actor.ShopID
		quiz.ShopID = &shopID
	} else {
		userID := actor.UserID
		quiz.UserID = &userID
	}

	for _, q := range payload.Questions {
		question := models.Question{
			SequenceOrder: q.SequenceOrder,
			Kind:          q.Kind,
			Prompt:        q.Prompt,
			Description:   q.Description,
		}
		if q.Scale != nil {
			v := q.Scale.MaxValue
			question.ScaleMax = &v
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, models.AnswerOption{
				Text: opt.OptionText,
				Slug: opt.AssociatedValue,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

func mapStorageErr(err error, quizID uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &reconcile.Error{Kind: reconcile.KindNotFound, Detail: "quiz not found"}
	}
	log.Printf("Storage error for quiz %d: %v", quizID, err)
	return &reconcile.Error{Kind: reconcile.KindStorageFailure, Detail: "storage operation failed"}
}
