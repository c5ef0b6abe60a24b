package models

import (
	"time"

	"gorm.io/gorm"
)

// Question kinds. Choice kinds carry answer options; the rest are option-free.
const (
	KindSingleChoice   = "single_choice"
	KindMultipleChoice = "multiple_choice"
	KindLeadCapture    = "lead_capture"
	KindInformation    = "information"
	KindScale          = "scale"
)

// Valid bounds for the scale kind's max_value sub-configuration.
const (
	ScaleMaxLower = 2
	ScaleMaxUpper = 10
)

func KnownKind(kind string) bool {
	switch kind {
	case KindSingleChoice, KindMultipleChoice, KindLeadCapture, KindInformation, KindScale:
		return true
	}
	return false
}

func KindUsesOptions(kind string) bool {
	return kind == KindSingleChoice || kind == KindMultipleChoice
}

// QuizDefinition is the aggregate root for one quiz funnel. It is owned by
// exactly one of UserID (an operator account) or ShopID (an external
// commerce-platform tenant), never both.
type QuizDefinition struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at" gorm:"index"`
	Name           string         `json:"quiz_name" gorm:"not null"`
	ProductPageURL string         `json:"product_page_url"`
	Headline       string         `json:"headline"`
	ButtonLabel    string         `json:"button_label"`
	AccentColor    string         `json:"accent_color"`
	UserID         *uint          `json:"user_id,omitempty" gorm:"index"`
	ShopID         *uint          `json:"shop_id,omitempty" gorm:"index"`
	Questions      []Question     `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

// Question is an ordered node of a quiz tree. Archived rows are kept so that
// recorded answers stay resolvable; they are excluded from active views.
// SequenceOrder is unique among the active questions of one quiz.
type Question struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	QuizID        uint           `json:"quiz_id" gorm:"index;not null"`
	SequenceOrder int            `json:"sequence_order" gorm:"not null"`
	Kind          string         `json:"kind" gorm:"not null"`
	Prompt        string         `json:"prompt"`
	Description   string         `json:"description"`
	ScaleMax      *int           `json:"scale_max,omitempty"`
	Archived      bool           `json:"archived" gorm:"not null;default:false"`
	Options       []AnswerOption `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

// AnswerOption is a selectable choice under a question. Slug is the
// machine-readable tag recorded answers are reported under; once an option
// has been answered its slug never changes meaning.
type AnswerOption struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	QuestionID uint      `json:"question_id" gorm:"index;not null"`
	Text       string    `json:"option_text" gorm:"not null"`
	Slug       string    `json:"associated_value" gorm:"not null"`
	Archived   bool      `json:"archived" gorm:"not null;default:false"`
}

// RespondentSession tracks one end user walking through a quiz.
type RespondentSession struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	QuizID      uint       `json:"quiz_id" gorm:"index;not null"`
	VisitorKey  string     `json:"visitor_key"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ResponseRecord is one recorded answer in a session's trail. AnswerOptionID
// is set for choice questions and nil for option-free kinds; its presence is
// what protects an option from archival and slug changes.
type ResponseRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time `json:"created_at"`
	SessionID      uint      `json:"session_id" gorm:"index;not null"`
	QuizID         uint      `json:"quiz_id" gorm:"index;not null"`
	QuestionID     uint      `json:"question_id" gorm:"index;not null"`
	AnswerOptionID *uint     `json:"answer_option_id,omitempty" gorm:"index"`
	FreeText       string    `json:"free_text,omitempty"`
}
