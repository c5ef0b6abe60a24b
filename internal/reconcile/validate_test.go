package reconcile

import (
	"testing"

	"quizfunnel/internal/models"
)

func choiceQuestion(seq int) models.QuestionPayload {
	return models.QuestionPayload{
		SequenceOrder: seq,
		Kind:          models.KindSingleChoice,
		Prompt:        "Pick one",
		Options:       []models.OptionPayload{{OptionText: "An option"}},
	}
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.QuizPayload)
		wantKind Kind
	}{
		{
			name:   "valid choice question",
			mutate: func(p *models.QuizPayload) {},
		},
		{
			name: "duplicate sequence order",
			mutate: func(p *models.QuizPayload) {
				p.Questions = append(p.Questions, choiceQuestion(1))
			},
			wantKind: KindDuplicateOrdering,
		},
		{
			name: "negative sequence order",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0].SequenceOrder = -3
			},
			wantKind: KindInvalidQuestionShape,
		},
		{
			name: "missing kind",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0].Kind = ""
			},
			wantKind: KindInvalidQuestionShape,
		},
		{
			name: "unknown kind",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0].Kind = "essay"
			},
			wantKind: KindInvalidQuestionShape,
		},
		{
			name: "choice kind without options",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0].Options = nil
			},
			wantKind: KindInvalidQuestionShape,
		},
		{
			name: "prompt required outside information kind",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0].Prompt = "   "
			},
			wantKind: KindInvalidQuestionShape,
		},
		{
			name: "information kind needs no prompt",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0] = models.QuestionPayload{
					SequenceOrder: 1,
					Kind:          models.KindInformation,
				}
			},
		},
		{
			name: "scale kind requires configuration",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0] = models.QuestionPayload{
					SequenceOrder: 1,
					Kind:          models.KindScale,
					Prompt:        "Rate it",
				}
			},
			wantKind: KindInvalidQuestionShape,
		},
		{
			name: "scale max below range",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0] = models.QuestionPayload{
					SequenceOrder: 1,
					Kind:          models.KindScale,
					Prompt:        "Rate it",
					Scale:         &models.ScalePayload{MaxValue: 1},
				}
			},
			wantKind: KindInvalidQuestionShape,
		},
		{
			name: "scale max above range",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0] = models.QuestionPayload{
					SequenceOrder: 1,
					Kind:          models.KindScale,
					Prompt:        "Rate it",
					Scale:         &models.ScalePayload{MaxValue: 11},
				}
			},
			wantKind: KindInvalidQuestionShape,
		},
		{
			name: "scale max in range",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0] = models.QuestionPayload{
					SequenceOrder: 1,
					Kind:          models.KindScale,
					Prompt:        "Rate it",
					Scale:         &models.ScalePayload{MaxValue: 7},
				}
			},
		},
		{
			name: "option without text",
			mutate: func(p *models.QuizPayload) {
				p.Questions[0].Options[0].OptionText = "  "
			},
			wantKind: KindInvalidQuestionShape,
		},
		{
			name: "missing quiz name",
			mutate: func(p *models.QuizPayload) {
				p.QuizName = ""
			},
			wantKind: KindInvalidQuestionShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := &models.QuizPayload{
				QuizName:  "Finder",
				Questions: []models.QuestionPayload{choiceQuestion(1)},
			}
			tt.mutate(payload)

			err := ValidatePayload(payload)
			if tt.wantKind == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := KindOf(err); got != tt.wantKind {
				t.Fatalf("kind = %s, want %s (%v)", got, tt.wantKind, err)
			}
		})
	}
}

func TestValidateDerivesSlugs(t *testing.T) {
	payload := &models.QuizPayload{
		QuizName: "Finder",
		Questions: []models.QuestionPayload{
			{
				SequenceOrder: 1,
				Kind:          models.KindSingleChoice,
				Prompt:        "Pick one",
				Options: []models.OptionPayload{
					{OptionText: "Dry & Flaky Skin!"},
					{OptionText: "Combination", AssociatedValue: "combo"},
				},
			},
		},
	}

	if err := ValidatePayload(payload); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := payload.Questions[0].Options[0].AssociatedValue; got != "dry_flaky_skin" {
		t.Errorf("derived slug = %q, want dry_flaky_skin", got)
	}
	// A client-supplied value wins over derivation.
	if got := payload.Questions[0].Options[1].AssociatedValue; got != "combo" {
		t.Errorf("slug = %q, want combo", got)
	}
}

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Oily", "oily"},
		{"Dry & Flaky Skin!", "dry_flaky_skin"},
		{"  Spaced   out  ", "spaced_out"},
		{"ALL CAPS", "all_caps"},
		{"option-2", "option2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DeriveSlug(tt.in); got != tt.want {
			t.Errorf("DeriveSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
