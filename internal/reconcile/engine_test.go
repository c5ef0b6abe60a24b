package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quizfunnel/internal/models"
	"quizfunnel/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

const ownerID = uint(1)

var owner = Actor{UserID: ownerID}

// seedQuiz persists a quiz with two single-choice questions at orders 1 and
// 2, each carrying two options.
func seedQuiz(t *testing.T, db *gorm.DB) *models.QuizDefinition {
	t.Helper()
	uid := ownerID
	quiz := &models.QuizDefinition{
		Name:   "Skin type finder",
		UserID: &uid,
		Questions: []models.Question{
			{
				SequenceOrder: 1,
				Kind:          models.KindSingleChoice,
				Prompt:        "How does your skin feel by midday?",
				Options: []models.AnswerOption{
					{Text: "Oily", Slug: "oily"},
					{Text: "Dry", Slug: "dry"},
				},
			},
			{
				SequenceOrder: 2,
				Kind:          models.KindSingleChoice,
				Prompt:        "How often do you break out?",
				Options: []models.AnswerOption{
					{Text: "Often", Slug: "often"},
					{Text: "Rarely", Slug: "rarely"},
				},
			},
		},
	}
	if err := db.Create(quiz).Error; err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return quiz
}

// recordAnswer simulates an end user having answered with the given option.
func recordAnswer(t *testing.T, db *gorm.DB, quizID, questionID, optionID uint) {
	t.Helper()
	session := models.RespondentSession{QuizID: quizID, VisitorKey: "v-1"}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	record := models.ResponseRecord{
		SessionID:      session.ID,
		QuizID:         quizID,
		QuestionID:     questionID,
		AnswerOptionID: &optionID,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed response: %v", err)
	}
}

// payloadFromTree echoes a persisted tree back as a payload, the way a
// client resubmits an unchanged quiz.
func payloadFromTree(quiz *models.QuizDefinition) *models.QuizPayload {
	payload := &models.QuizPayload{
		QuizName:       quiz.Name,
		ProductPageURL: quiz.ProductPageURL,
		Headline:       quiz.Headline,
		ButtonLabel:    quiz.ButtonLabel,
		AccentColor:    quiz.AccentColor,
	}
	for i := range quiz.Questions {
		q := quiz.Questions[i]
		id := q.ID
		qp := models.QuestionPayload{
			QuestionID:    &id,
			SequenceOrder: q.SequenceOrder,
			Kind:          q.Kind,
			Prompt:        q.Prompt,
			Description:   q.Description,
		}
		if q.ScaleMax != nil {
			qp.Scale = &models.ScalePayload{MaxValue: *q.ScaleMax}
		}
		for j := range q.Options {
			opt := q.Options[j]
			oid := opt.ID
			qp.Options = append(qp.Options, models.OptionPayload{
				OptionID:        &oid,
				OptionText:      opt.Text,
				AssociatedValue: opt.Slug,
			})
		}
		payload.Questions = append(payload.Questions, qp)
	}
	return payload
}

func activeQuestions(t *testing.T, db *gorm.DB, quizID uint) []models.Question {
	t.Helper()
	var questions []models.Question
	err := db.Where("quiz_id = ? AND archived = ?", quizID, false).
		Order("sequence_order asc").
		Preload("Options").
		Find(&questions).Error
	if err != nil {
		t.Fatalf("load active questions: %v", err)
	}
	return questions
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func TestNoOpResubmissionIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	before := activeQuestions(t, db, quiz.ID)
	payload := payloadFromTree(quiz)

	result, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	after := activeQuestions(t, db, quiz.ID)
	if len(after) != len(before) {
		t.Fatalf("active set changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i].ID != before[i].ID {
			t.Errorf("question %d identity changed: %d -> %d", i, before[i].ID, after[i].ID)
		}
		if after[i].SequenceOrder != before[i].SequenceOrder {
			t.Errorf("question %d order changed: %d -> %d", i, before[i].SequenceOrder, after[i].SequenceOrder)
		}
		if len(after[i].Options) != len(before[i].Options) {
			t.Errorf("question %d option count changed: %d -> %d", i, len(before[i].Options), len(after[i].Options))
		}
	}

	var archivedCount int64
	db.Model(&models.Question{}).Where("quiz_id = ? AND archived = ?", quiz.ID, true).Count(&archivedCount)
	if archivedCount != 0 {
		t.Errorf("no-op resubmission archived %d questions", archivedCount)
	}
	if len(result.Questions) != len(before) {
		t.Errorf("returned tree has %d questions, want %d", len(result.Questions), len(before))
	}
}

func TestAnsweredOptionSurvivesRemoval(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	answered := quiz.Questions[0].Options[0]
	recordAnswer(t, db, quiz.ID, quiz.Questions[0].ID, answered.ID)

	// Client drops the answered option and tries to rewrite the slug of
	// nothing else; the option must remain active with its slug intact.
	payload := payloadFromTree(quiz)
	payload.Questions[0].Options = payload.Questions[0].Options[1:]

	if _, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	var opt models.AnswerOption
	if err := db.First(&opt, answered.ID).Error; err != nil {
		t.Fatalf("reload option: %v", err)
	}
	if opt.Archived {
		t.Error("answered option was archived")
	}
	if opt.Slug != answered.Slug {
		t.Errorf("answered option slug changed: %q -> %q", answered.Slug, opt.Slug)
	}
}

func TestAnsweredOptionSlugIsImmutable(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	answered := quiz.Questions[0].Options[0]
	recordAnswer(t, db, quiz.ID, quiz.Questions[0].ID, answered.ID)

	payload := payloadFromTree(quiz)
	payload.Questions[0].Options[0].OptionText = "Shiny by noon"
	payload.Questions[0].Options[0].AssociatedValue = "totally_different"

	if _, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	var opt models.AnswerOption
	if err := db.First(&opt, answered.ID).Error; err != nil {
		t.Fatalf("reload option: %v", err)
	}
	if opt.Slug != "oily" {
		t.Errorf("answered option slug changed to %q", opt.Slug)
	}
	if opt.Text != "Shiny by noon" {
		t.Errorf("display text not updated, got %q", opt.Text)
	}
}

func TestUnansweredOptionSlugFollowsPayload(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	payload := payloadFromTree(quiz)
	payload.Questions[0].Options[0].OptionText = "Very oily"
	payload.Questions[0].Options[0].AssociatedValue = "very_oily"

	if _, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	var opt models.AnswerOption
	if err := db.First(&opt, quiz.Questions[0].Options[0].ID).Error; err != nil {
		t.Fatalf("reload option: %v", err)
	}
	if opt.Slug != "very_oily" {
		t.Errorf("slug = %q, want very_oily", opt.Slug)
	}
}

func TestDuplicateOrderingRejectedBeforeAnyWrite(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	payload := payloadFromTree(quiz)
	payload.Questions[1].SequenceOrder = payload.Questions[0].SequenceOrder

	_, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner)
	assertKind(t, err, KindDuplicateOrdering)
	if !strings.Contains(err.Error(), "1") {
		t.Errorf("error should name the colliding value, got %q", err.Error())
	}

	after := activeQuestions(t, db, quiz.ID)
	if len(after) != 2 || after[0].SequenceOrder != 1 || after[1].SequenceOrder != 2 {
		t.Errorf("state mutated by rejected payload: %+v", after)
	}
}

func TestSwapSequenceOrders(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	first, second := quiz.Questions[0].ID, quiz.Questions[1].ID

	payload := payloadFromTree(quiz)
	payload.Questions[0].SequenceOrder = 2
	payload.Questions[1].SequenceOrder = 1

	// Without the placeholder displacement this trips the partial unique
	// index on (quiz_id, sequence_order) mid-update.
	if _, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner); err != nil {
		t.Fatalf("swap reconcile: %v", err)
	}

	after := activeQuestions(t, db, quiz.ID)
	if len(after) != 2 {
		t.Fatalf("expected 2 active questions, got %d", len(after))
	}
	if after[0].ID != second || after[0].SequenceOrder != 1 {
		t.Errorf("expected question %d at order 1, got %d at %d", second, after[0].ID, after[0].SequenceOrder)
	}
	if after[1].ID != first || after[1].SequenceOrder != 2 {
		t.Errorf("expected question %d at order 2, got %d at %d", first, after[1].ID, after[1].SequenceOrder)
	}
}

func TestEmptyPayloadRollsBackCompletely(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	payload := &models.QuizPayload{QuizName: "renamed mid-flight", Questions: nil}

	_, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner)
	assertKind(t, err, KindEmptyActiveSet)

	// The archival of both questions and the quiz rename must both be gone.
	after := activeQuestions(t, db, quiz.ID)
	if len(after) != 2 {
		t.Fatalf("rollback failed: %d active questions, want 2", len(after))
	}
	var reloaded models.QuizDefinition
	if err := db.First(&reloaded, quiz.ID).Error; err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	if reloaded.Name != quiz.Name {
		t.Errorf("quiz rename survived rollback: %q", reloaded.Name)
	}
}

func TestRestoreConflictFailsFast(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	// Park an archived question at order 3 and move the second question to
	// order 5, the slot the restore will fight over.
	archived := models.Question{
		QuizID:        quiz.ID,
		SequenceOrder: 3,
		Kind:          models.KindInformation,
		Prompt:        "Did you know?",
		Archived:      true,
	}
	if err := db.Create(&archived).Error; err != nil {
		t.Fatalf("seed archived question: %v", err)
	}
	blocker := quiz.Questions[1].ID
	if err := db.Model(&models.Question{}).Where("id = ?", blocker).Update("sequence_order", 5).Error; err != nil {
		t.Fatalf("move blocker: %v", err)
	}

	archivedID := archived.ID
	payload := &models.QuizPayload{
		QuizName: quiz.Name,
		Questions: []models.QuestionPayload{
			{QuestionID: &archivedID, SequenceOrder: 5, Kind: models.KindInformation, Prompt: "Did you know?"},
		},
	}

	_, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner)
	assertKind(t, err, KindRestoreConflict)
	if !strings.Contains(err.Error(), "5") {
		t.Errorf("error should name the contested order, got %q", err.Error())
	}

	// Nothing moved: the blocker is still active at 5, the restore target
	// still archived at 3.
	var check models.Question
	if err := db.First(&check, blocker).Error; err != nil {
		t.Fatalf("reload blocker: %v", err)
	}
	if check.Archived || check.SequenceOrder != 5 {
		t.Errorf("blocker mutated: archived=%v order=%d", check.Archived, check.SequenceOrder)
	}
	var checkArchived models.Question
	if err := db.First(&checkArchived, archivedID).Error; err != nil {
		t.Fatalf("reload archived: %v", err)
	}
	if !checkArchived.Archived || checkArchived.SequenceOrder != 3 {
		t.Errorf("archived question mutated: archived=%v order=%d", checkArchived.Archived, checkArchived.SequenceOrder)
	}
}

func TestRestoreIntoFreeSlotSucceeds(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	archived := models.Question{
		QuizID:        quiz.ID,
		SequenceOrder: 3,
		Kind:          models.KindInformation,
		Prompt:        "Did you know?",
		Archived:      true,
	}
	if err := db.Create(&archived).Error; err != nil {
		t.Fatalf("seed archived question: %v", err)
	}

	payload := payloadFromTree(quiz)
	archivedID := archived.ID
	payload.Questions = append(payload.Questions, models.QuestionPayload{
		QuestionID:    &archivedID,
		SequenceOrder: 3,
		Kind:          models.KindInformation,
		Prompt:        "Did you know?",
	})

	if _, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	var check models.Question
	if err := db.First(&check, archivedID).Error; err != nil {
		t.Fatalf("reload restored: %v", err)
	}
	if check.Archived || check.SequenceOrder != 3 {
		t.Errorf("restore failed: archived=%v order=%d", check.Archived, check.SequenceOrder)
	}
}

// The end-to-end scenario: A and B are active at 1 and 2, B's first option
// has been answered once. The payload keeps B (moved to 1, option text
// edited) and adds a brand-new question at 2; A is withdrawn.
func TestReconcileScenario(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)

	questionA := quiz.Questions[0]
	questionB := quiz.Questions[1]
	optionB1 := questionB.Options[0]
	recordAnswer(t, db, quiz.ID, questionB.ID, optionB1.ID)

	bID, b1ID := questionB.ID, optionB1.ID
	payload := &models.QuizPayload{
		QuizName: quiz.Name,
		Questions: []models.QuestionPayload{
			{
				QuestionID:    &bID,
				SequenceOrder: 1,
				Kind:          models.KindSingleChoice,
				Prompt:        questionB.Prompt,
				Options: []models.OptionPayload{
					{OptionID: &b1ID, OptionText: "new text"},
				},
			},
			{
				SequenceOrder: 2,
				Kind:          models.KindSingleChoice,
				Prompt:        "Which finish do you prefer?",
				Options: []models.OptionPayload{
					{OptionText: "fresh"},
				},
			},
		},
	}

	result, err := engine.Reconcile(context.Background(), quiz.ID, payload, owner)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// A is archived.
	var reloadedA models.Question
	if err := db.First(&reloadedA, questionA.ID).Error; err != nil {
		t.Fatalf("reload A: %v", err)
	}
	if !reloadedA.Archived {
		t.Error("withdrawn question A was not archived")
	}

	// B moved to 1, its answered option kept slug, got the new text.
	var reloadedB models.Question
	if err := db.First(&reloadedB, questionB.ID).Error; err != nil {
		t.Fatalf("reload B: %v", err)
	}
	if reloadedB.Archived || reloadedB.SequenceOrder != 1 {
		t.Errorf("B: archived=%v order=%d, want active at 1", reloadedB.Archived, reloadedB.SequenceOrder)
	}
	var reloadedB1 models.AnswerOption
	if err := db.First(&reloadedB1, optionB1.ID).Error; err != nil {
		t.Fatalf("reload B1: %v", err)
	}
	if reloadedB1.Archived {
		t.Error("answered option B1 was archived")
	}
	if reloadedB1.Slug != optionB1.Slug {
		t.Errorf("B1 slug changed: %q -> %q", optionB1.Slug, reloadedB1.Slug)
	}
	if reloadedB1.Text != "new text" {
		t.Errorf("B1 text = %q, want %q", reloadedB1.Text, "new text")
	}

	// Final active set: B at 1 plus a freshly minted question at 2.
	active := activeQuestions(t, db, quiz.ID)
	if len(active) != 2 {
		t.Fatalf("active set size = %d, want 2", len(active))
	}
	if active[0].ID != questionB.ID || active[0].SequenceOrder != 1 {
		t.Errorf("active[0] = question %d at %d", active[0].ID, active[0].SequenceOrder)
	}
	if active[1].ID == questionA.ID || active[1].ID == questionB.ID {
		t.Error("second active question should be newly minted")
	}
	if active[1].SequenceOrder != 2 {
		t.Errorf("new question order = %d, want 2", active[1].SequenceOrder)
	}
	if len(active[1].Options) != 1 || active[1].Options[0].Slug != "fresh" {
		t.Errorf("new question options = %+v", active[1].Options)
	}

	// The returned tree carries the minted identities.
	if len(result.Questions) != 2 {
		t.Fatalf("returned tree has %d questions", len(result.Questions))
	}
	if result.Questions[1].ID != active[1].ID {
		t.Errorf("returned tree question id %d, want %d", result.Questions[1].ID, active[1].ID)
	}
}

func TestReconcileAuthorization(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db)
	engine := NewEngine(db)
	payload := payloadFromTree(quiz)

	_, err := engine.Reconcile(context.Background(), quiz.ID, payload, Actor{UserID: 42})
	assertKind(t, err, KindUnauthorized)

	// Admins reconcile anything.
	if _, err := engine.Reconcile(context.Background(), quiz.ID, payloadFromTree(quiz), Actor{UserID: 42, IsAdmin: true}); err != nil {
		t.Fatalf("admin reconcile: %v", err)
	}
}

func TestReconcileUnknownQuiz(t *testing.T) {
	db := newTestDB(t)
	seedQuiz(t, db)
	engine := NewEngine(db)

	payload := &models.QuizPayload{
		QuizName: "ghost",
		Questions: []models.QuestionPayload{
			{SequenceOrder: 1, Kind: models.KindInformation},
		},
	}
	_, err := engine.Reconcile(context.Background(), 9999, payload, owner)
	assertKind(t, err, KindNotFound)
}

func TestErrorKindMatching(t *testing.T) {
	err := errDuplicateOrdering(4)
	if !errors.Is(err, &Error{Kind: KindDuplicateOrdering}) {
		t.Error("errors.Is should match by kind")
	}
	if errors.Is(err, &Error{Kind: KindNotFound}) {
		t.Error("errors.Is matched the wrong kind")
	}
}
