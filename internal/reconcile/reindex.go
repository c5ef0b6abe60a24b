package reconcile

import (
	"quizfunnel/internal/models"

	"gorm.io/gorm"
)

// displaceQuestions is phase one of the two-phase reindex. Applying target
// sequence orders one row at a time can transiently collide with another
// row's current order (swapping two questions is the classic case), so every
// persisted question the payload will update in place is first parked at a
// placeholder order that nothing legitimate can occupy: the negative of its
// own identity. Real orders are validated non-negative and identities are
// unique, so the placeholder keyspace is disjoint and collision-free. The
// true targets land later, one row at a time, during upsert.
func displaceQuestions(tx *gorm.DB, snap *snapshot, payload *models.QuizPayload) error {
	if err := checkRestoreConflicts(snap, payload); err != nil {
		return err
	}

	for _, q := range payload.Questions {
		if q.QuestionID == nil {
			continue
		}
		row, ok := snap.Questions[*q.QuestionID]
		if !ok {
			// Unknown identity: the upserter inserts it fresh, nothing to park.
			continue
		}
		placeholder := -int(row.ID)
		err := tx.Model(&models.Question{}).
			Where("id = ?", row.ID).
			Update("sequence_order", placeholder).Error
		if err != nil {
			return errStorage(err)
		}
	}
	return nil
}

// checkRestoreConflicts fails fast when the payload reactivates an archived
// question at a sequence order some other question held while active when
// the transaction began. The engine never renumbers the blocking row on the
// caller's behalf; the operator resolves it in a separate edit.
func checkRestoreConflicts(snap *snapshot, payload *models.QuizPayload) error {
	for _, q := range payload.Questions {
		if q.QuestionID == nil {
			continue
		}
		row, ok := snap.Questions[*q.QuestionID]
		if !ok || !row.Archived || q.SequenceOrder == row.Sequence {
			continue
		}
		for _, other := range snap.Questions {
			if other.ID != row.ID && !other.Archived && other.Sequence == q.SequenceOrder {
				return errRestoreConflict(other.ID, q.SequenceOrder)
			}
		}
	}
	return nil
}
