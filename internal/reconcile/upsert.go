package reconcile

import (
	"quizfunnel/internal/models"

	"gorm.io/gorm"
)

// upsertTree walks the payload in order, inserting new rows and updating
// continuations in place so that foreign history keeps pointing at the same
// identities. It applies each question's true target sequence order (phase
// two of the reindex — every touched row is already parked at a negative
// placeholder). Returns the identity sets of every row that is active when
// the walk finishes.
func upsertTree(tx *gorm.DB, snap *snapshot, payload *models.QuizPayload) (idSet, idSet, error) {
	activeQuestions := make(idSet)
	activeOptions := make(idSet)
	quizID := snap.Quiz.ID

	for i := range payload.Questions {
		q := &payload.Questions[i]

		questionID, isNew, err := upsertQuestion(tx, snap, quizID, q)
		if err != nil {
			return nil, nil, err
		}
		activeQuestions[questionID] = true
		// Reflect the insert back so the caller sees minted identities.
		if isNew {
			q.QuestionID = &questionID
		}

		for j := range q.Options {
			opt := &q.Options[j]
			optionID, optIsNew, err := upsertOption(tx, snap, questionID, opt)
			if err != nil {
				return nil, nil, err
			}
			activeOptions[optionID] = true
			if optIsNew {
				opt.OptionID = &optionID
			}
		}
	}
	return activeQuestions, activeOptions, nil
}

func upsertQuestion(tx *gorm.DB, snap *snapshot, quizID uint, q *models.QuestionPayload) (uint, bool, error) {
	var scaleMax *int
	if q.Scale != nil {
		v := q.Scale.MaxValue
		scaleMax = &v
	}

	if q.QuestionID != nil {
		if _, ok := snap.Questions[*q.QuestionID]; ok {
			// Continuation: update every mutable field and clear the archive
			// flag; the identity is the correlation key and never changes.
			err := tx.Model(&models.Question{}).
				Where("id = ?", *q.QuestionID).
				Updates(map[string]interface{}{
					"sequence_order": q.SequenceOrder,
					"kind":           q.Kind,
					"prompt":         q.Prompt,
					"description":    q.Description,
					"scale_max":      scaleMax,
					"archived":       false,
				}).Error
			if err != nil {
				return 0, false, errStorage(err)
			}
			return *q.QuestionID, false, nil
		}
	}

	question := models.Question{
		QuizID:        quizID,
		SequenceOrder: q.SequenceOrder,
		Kind:          q.Kind,
		Prompt:        q.Prompt,
		Description:   q.Description,
		ScaleMax:      scaleMax,
	}
	if err := tx.Create(&question).Error; err != nil {
		return 0, false, errStorage(err)
	}
	return question.ID, true, nil
}

func upsertOption(tx *gorm.DB, snap *snapshot, questionID uint, opt *models.OptionPayload) (uint, bool, error) {
	if opt.OptionID != nil {
		if row, ok := snap.Options[*opt.OptionID]; ok && row.QuestionID == questionID {
			updates := map[string]interface{}{
				"text":     opt.OptionText,
				"archived": false,
			}
			// An answered option's slug is what history is reported under;
			// it never changes, whatever the payload asked for. Display text
			// is still fair game.
			if row.Responses == 0 {
				updates["slug"] = opt.AssociatedValue
			}
			err := tx.Model(&models.AnswerOption{}).
				Where("id = ?", *opt.OptionID).
				Updates(updates).Error
			if err != nil {
				return 0, false, errStorage(err)
			}
			return *opt.OptionID, false, nil
		}
	}

	option := models.AnswerOption{
		QuestionID: questionID,
		Text:       opt.OptionText,
		Slug:       opt.AssociatedValue,
	}
	if err := tx.Create(&option).Error; err != nil {
		return 0, false, errStorage(err)
	}
	return option.ID, true, nil
}
