package reconcile

import (
	"errors"

	"quizfunnel/internal/models"

	"gorm.io/gorm"
)

// snapshot is the persisted state of one quiz tree as it stood when the
// transaction began: every question and option, active or archived, plus
// how many recorded answers reference each option.
type snapshot struct {
	Quiz      *models.QuizDefinition
	Questions map[uint]*questionRow
	Options   map[uint]*optionRow
}

type questionRow struct {
	ID       uint
	Sequence int
	Archived bool
}

type optionRow struct {
	ID         uint
	QuestionID uint
	Slug       string
	Archived   bool
	Responses  int64
}

// loadSnapshot reads the full persisted tree for quizID inside tx. It is the
// only read step of the engine; everything after it works off the returned
// value, not the database.
func loadSnapshot(tx *gorm.DB, quizID uint) (*snapshot, error) {
	var quiz models.QuizDefinition
	if err := tx.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound(quizID)
		}
		return nil, errStorage(err)
	}

	var questions []models.Question
	if err := tx.Where("quiz_id = ?", quizID).Find(&questions).Error; err != nil {
		return nil, errStorage(err)
	}

	snap := &snapshot{
		Quiz:      &quiz,
		Questions: make(map[uint]*questionRow, len(questions)),
		Options:   make(map[uint]*optionRow),
	}

	questionIDs := make([]uint, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
		snap.Questions[q.ID] = &questionRow{ID: q.ID, Sequence: q.SequenceOrder, Archived: q.Archived}
	}

	if len(questionIDs) > 0 {
		var options []models.AnswerOption
		if err := tx.Where("question_id IN ?", questionIDs).Find(&options).Error; err != nil {
			return nil, errStorage(err)
		}
		for _, opt := range options {
			snap.Options[opt.ID] = &optionRow{
				ID:         opt.ID,
				QuestionID: opt.QuestionID,
				Slug:       opt.Slug,
				Archived:   opt.Archived,
			}
		}
	}

	// One grouped count instead of a query per option.
	type refCount struct {
		AnswerOptionID uint
		Total          int64
	}
	var counts []refCount
	err := tx.Model(&models.ResponseRecord{}).
		Select("answer_option_id, COUNT(*) as total").
		Where("quiz_id = ? AND answer_option_id IS NOT NULL", quizID).
		Group("answer_option_id").
		Scan(&counts).Error
	if err != nil {
		return nil, errStorage(err)
	}
	for _, c := range counts {
		if row, ok := snap.Options[c.AnswerOptionID]; ok {
			row.Responses = c.Total
		}
	}

	return snap, nil
}
