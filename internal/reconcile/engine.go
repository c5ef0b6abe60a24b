package reconcile

import (
	"context"
	"log"

	"quizfunnel/internal/models"

	"gorm.io/gorm"
)

// Actor is the validated principal attempting a reconciliation: either an
// operator account (UserID) or an external-platform tenant (ShopID).
type Actor struct {
	UserID  uint
	ShopID  uint
	IsAdmin bool
}

// Authorize reports whether the actor may act on the quiz. Admins bypass
// ownership; everyone else must match the quiz's owning principal.
func Authorize(quiz *models.QuizDefinition, actor Actor) error {
	if actor.IsAdmin {
		return nil
	}
	if quiz.UserID != nil && actor.UserID == *quiz.UserID {
		return nil
	}
	if quiz.ShopID != nil && actor.ShopID != 0 && actor.ShopID == *quiz.ShopID {
		return nil
	}
	return errUnauthorized()
}

// phase names the engine's position inside the transaction; it shows up in
// failure logs so a rolled-back reconciliation can be traced to the step
// that aborted it.
type phase string

const (
	phaseStarted    phase = "started"
	phaseValidating phase = "validating"
	phaseLoaded     phase = "loaded"
	phaseArchiving  phase = "archiving"
	phaseDisplacing phase = "displacing"
	phaseUpserting  phase = "upserting"
	phaseVerifying  phase = "verifying"
)

// Engine merges a client-submitted quiz tree into persisted state inside one
// atomic transaction, preserving answered-option history, keeping active
// sequence orders collision-free and archiving withdrawn rows.
type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Reconcile runs the full pipeline: validate → load snapshot → archive
// withdrawn rows → displace touched rows → upsert in payload order → verify.
// Any failure after the transaction opens rolls the whole thing back; no
// partial archival, reindex or upsert ever commits. On success it returns
// the reconciled tree with all identities (minted ones included) resolved.
func (e *Engine) Reconcile(ctx context.Context, quizID uint, payload *models.QuizPayload, actor Actor) (*models.QuizDefinition, error) {
	current := phaseStarted

	// Validation failures abort before any transaction is opened.
	current = phaseValidating
	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}

	var result *models.QuizDefinition
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snap, err := loadSnapshot(tx, quizID)
		if err != nil {
			return err
		}
		current = phaseLoaded

		if err := Authorize(snap.Quiz, actor); err != nil {
			return err
		}

		current = phaseArchiving
		keepQuestions, keepOptions := payloadIDSets(payload)
		archivedQ, archivedO, err := applyArchivalPolicy(tx, snap, keepQuestions, keepOptions)
		if err != nil {
			return err
		}
		if len(archivedQ) > 0 || len(archivedO) > 0 {
			log.Printf("Quiz %d: archiving %d questions, %d options", quizID, len(archivedQ), len(archivedO))
		}

		current = phaseDisplacing
		if err := displaceQuestions(tx, snap, payload); err != nil {
			return err
		}

		current = phaseUpserting
		if err := updateQuizFields(tx, quizID, payload); err != nil {
			return err
		}
		activeQuestions, _, err := upsertTree(tx, snap, payload)
		if err != nil {
			return err
		}

		current = phaseVerifying
		if len(activeQuestions) == 0 {
			return errEmptyActiveSet()
		}
		var activeCount int64
		err = tx.Model(&models.Question{}).
			Where("quiz_id = ? AND archived = ?", quizID, false).
			Count(&activeCount).Error
		if err != nil {
			return errStorage(err)
		}
		if activeCount == 0 {
			return errEmptyActiveSet()
		}

		result, err = loadReconciledTree(tx, quizID)
		return err
	})
	if err != nil {
		log.Printf("Quiz %d: reconciliation rolled back in phase %s: %v", quizID, current, err)
		return nil, errStorage(err)
	}

	return result, nil
}

func updateQuizFields(tx *gorm.DB, quizID uint, payload *models.QuizPayload) error {
	err := tx.Model(&models.QuizDefinition{}).
		Where("id = ?", quizID).
		Updates(map[string]interface{}{
			"name":             payload.QuizName,
			"product_page_url": payload.ProductPageURL,
			"headline":         payload.Headline,
			"button_label":     payload.ButtonLabel,
			"accent_color":     payload.AccentColor,
		}).Error
	if err != nil {
		return errStorage(err)
	}
	return nil
}

// loadReconciledTree re-reads the active tree inside the same transaction so
// the caller gets back exactly what was persisted.
func loadReconciledTree(tx *gorm.DB, quizID uint) (*models.QuizDefinition, error) {
	var quiz models.QuizDefinition
	if err := tx.First(&quiz, quizID).Error; err != nil {
		return nil, errStorage(err)
	}

	var questions []models.Question
	err := tx.Where("quiz_id = ? AND archived = ?", quizID, false).
		Order("sequence_order asc").
		Preload("Options", "archived = ?", false).
		Find(&questions).Error
	if err != nil {
		return nil, errStorage(err)
	}
	quiz.Questions = questions
	return &quiz, nil
}
