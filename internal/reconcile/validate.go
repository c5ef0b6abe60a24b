package reconcile

import (
	"strings"
	"unicode"

	"quizfunnel/internal/models"
)

// ValidatePayload checks the submitted tree for internal consistency and
// normalizes it in place (trimmed fields, derived slugs). It touches no
// storage; every error it returns is raised before a transaction is opened.
func ValidatePayload(payload *models.QuizPayload) error {
	if payload == nil {
		return errInvalidShape("payload is required")
	}
	if strings.TrimSpace(payload.QuizName) == "" {
		return errInvalidShape("quiz_name is required")
	}

	seen := make(map[int]bool, len(payload.Questions))
	for i := range payload.Questions {
		q := &payload.Questions[i]

		if q.SequenceOrder < 0 {
			return errInvalidShape("sequence_order %d is negative", q.SequenceOrder)
		}
		if seen[q.SequenceOrder] {
			return errDuplicateOrdering(q.SequenceOrder)
		}
		seen[q.SequenceOrder] = true

		if err := validateQuestion(q); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestion(q *models.QuestionPayload) error {
	q.Kind = strings.TrimSpace(q.Kind)
	q.Prompt = strings.TrimSpace(q.Prompt)

	if q.Kind == "" {
		return errInvalidShape("question at sequence_order %d has no kind", q.SequenceOrder)
	}
	if !models.KnownKind(q.Kind) {
		return errInvalidShape("unknown question kind %q", q.Kind)
	}

	// Prompt text is required for every kind except the content-free
	// information card.
	if q.Prompt == "" && q.Kind != models.KindInformation {
		return errInvalidShape("question at sequence_order %d requires a prompt", q.SequenceOrder)
	}

	if models.KindUsesOptions(q.Kind) && len(q.Options) == 0 {
		return errInvalidShape("question at sequence_order %d (%s) requires at least one option", q.SequenceOrder, q.Kind)
	}

	if q.Kind == models.KindScale {
		if q.Scale == nil {
			return errInvalidShape("question at sequence_order %d requires a scale configuration", q.SequenceOrder)
		}
		if q.Scale.MaxValue < models.ScaleMaxLower || q.Scale.MaxValue > models.ScaleMaxUpper {
			return errInvalidShape("scale max_value %d is outside [%d,%d]", q.Scale.MaxValue, models.ScaleMaxLower, models.ScaleMaxUpper)
		}
	}

	for j := range q.Options {
		opt := &q.Options[j]
		opt.OptionText = strings.TrimSpace(opt.OptionText)
		if opt.OptionText == "" {
			return errInvalidShape("option %d of question at sequence_order %d has no text", j, q.SequenceOrder)
		}
		if strings.TrimSpace(opt.AssociatedValue) == "" {
			opt.AssociatedValue = DeriveSlug(opt.OptionText)
		}
	}
	return nil
}

// DeriveSlug turns option display text into its machine-readable tag:
// lower-cased, runs of whitespace become single underscores, everything
// else non-alphanumeric is stripped.
func DeriveSlug(text string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSep = true
		}
	}
	return b.String()
}
