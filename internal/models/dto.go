package models

// QuizPayload is the full desired quiz tree a client submits. Every edit
// resubmits the entire tree; rows carrying an identity are continuations of
// persisted rows, rows without one are inserted fresh.
type QuizPayload struct {
	QuizName       string            `json:"quiz_name"`
	ProductPageURL string            `json:"product_page_url"`
	Headline       string            `json:"headline"`
	ButtonLabel    string            `json:"button_label"`
	AccentColor    string            `json:"accent_color"`
	Questions      []QuestionPayload `json:"questions"`
}

type QuestionPayload struct {
	QuestionID    *uint           `json:"question_id,omitempty"`
	SequenceOrder int             `json:"sequence_order"`
	Kind          string          `json:"kind"`
	Prompt        string          `json:"prompt"`
	Description   string          `json:"description"`
	Scale         *ScalePayload   `json:"scale,omitempty"`
	Options       []OptionPayload `json:"options"`
}

// ScalePayload is the sub-configuration required by the scale kind.
type ScalePayload struct {
	MaxValue int `json:"max_value"`
}

type OptionPayload struct {
	OptionID        *uint  `json:"option_id,omitempty"`
	OptionText      string `json:"option_text"`
	AssociatedValue string `json:"associated_value,omitempty"`
}

// Public views served to respondents. Archived rows and owner details are
// stripped.
type QuizView struct {
	ID             uint           `json:"id"`
	Name           string         `json:"quiz_name"`
	ProductPageURL string         `json:"product_page_url"`
	Headline       string         `json:"headline"`
	ButtonLabel    string         `json:"button_label"`
	AccentColor    string         `json:"accent_color"`
	Questions      []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID            uint         `json:"id"`
	SequenceOrder int          `json:"sequence_order"`
	Kind          string       `json:"kind"`
	Prompt        string       `json:"prompt"`
	Description   string       `json:"description,omitempty"`
	ScaleMax      *int         `json:"scale_max,omitempty"`
	Options       []OptionView `json:"options,omitempty"`
}

type OptionView struct {
	ID              uint   `json:"id"`
	Text            string `json:"option_text"`
	AssociatedValue string `json:"associated_value"`
}

func (q QuizDefinition) ToView() QuizView {
	questions := make([]QuestionView, 0, len(q.Questions))
	for _, question := range q.Questions {
		if question.Archived {
			continue
		}
		questions = append(questions, question.ToView())
	}

	return QuizView{
		ID:             q.ID,
		Name:           q.Name,
		ProductPageURL: q.ProductPageURL,
		Headline:       q.Headline,
		ButtonLabel:    q.ButtonLabel,
		AccentColor:    q.AccentColor,
		Questions:      questions,
	}
}

func (q Question) ToView() QuestionView {
	var options []OptionView
	for _, opt := range q.Options {
		if opt.Archived {
			continue
		}
		options = append(options, OptionView{
			ID:              opt.ID,
			Text:            opt.Text,
			AssociatedValue: opt.Slug,
		})
	}

	return QuestionView{
		ID:            q.ID,
		SequenceOrder: q.SequenceOrder,
		Kind:          q.Kind,
		Prompt:        q.Prompt,
		Description:   q.Description,
		ScaleMax:      q.ScaleMax,
		Options:       options,
	}
}
