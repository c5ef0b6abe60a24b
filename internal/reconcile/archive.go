package reconcile

import (
	"quizfunnel/internal/models"

	"gorm.io/gorm"
)

type idSet map[uint]bool

// payloadIDSets collects the identities the payload explicitly carries.
// Anything persisted but missing from these sets has been withdrawn by the
// client.
func payloadIDSets(payload *models.QuizPayload) (questions idSet, options idSet) {
	questions = make(idSet)
	options = make(idSet)
	for _, q := range payload.Questions {
		if q.QuestionID != nil {
			questions[*q.QuestionID] = true
		}
		for _, opt := range q.Options {
			if opt.OptionID != nil {
				options[*opt.OptionID] = true
			}
		}
	}
	return questions, options
}

// applyArchivalPolicy soft-deletes withdrawn rows. Withdrawn questions are
// archived unconditionally; withdrawn options are archived only when no
// recorded answer references them — an answered option stays active so its
// identity keeps resolving, regardless of the client's intent to remove it.
func applyArchivalPolicy(tx *gorm.DB, snap *snapshot, keepQuestions, keepOptions idSet) (archivedQuestions, archivedOptions []uint, err error) {
	for id, row := range snap.Questions {
		if !keepQuestions[id] && !row.Archived {
			archivedQuestions = append(archivedQuestions, id)
		}
	}
	for id, row := range snap.Options {
		if keepOptions[id] || row.Archived {
			continue
		}
		// The owning question may itself be withdrawn; its answered options
		// still stay active.
		if row.Responses == 0 {
			archivedOptions = append(archivedOptions, id)
		}
	}

	if len(archivedQuestions) > 0 {
		err = tx.Model(&models.Question{}).
			Where("id IN ?", archivedQuestions).
			Update("archived", true).Error
		if err != nil {
			return nil, nil, errStorage(err)
		}
	}
	if len(archivedOptions) > 0 {
		err = tx.Model(&models.AnswerOption{}).
			Where("id IN ?", archivedOptions).
			Update("archived", true).Error
		if err != nil {
			return nil, nil, errStorage(err)
		}
	}
	return archivedQuestions, archivedOptions, nil
}
