package push

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Notification types
const (
	TypeDaily = "daily"
	TypeEvent = "event"
	TypeFree  = "free"
	TypeTest  = "test"
)

type (
	// PushSubscription binds a browser/device to its push service endpoint.
	PushSubscription struct {
		Endpoint  string    `db:"endpoint" json:"endpoint" validate:"required,pushorigin"`
		P256dh    string    `db:"p256dh" json:"p256dh"`
		Auth      string    `db:"auth" json:"auth"`
		UserAgent string    `db:"user_agent" json:"user_agent"`
		Platform  string    `db:"platform" json:"platform"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	// NotificationRecord is the row whose insertion triggers a dispatch.
	NotificationRecord struct {
		ID        int64      `json:"id,omitempty"`
		Title     string     `json:"title" validate:"max=255"`
		Message   string     `json:"message" validate:"max=4000"`
		URL       string     `json:"url" validate:"max=2048"`
		Type      string     `json:"type" validate:"omitempty,oneof=daily event free test"`
		CreatedAt *time.Time `json:"created_at,omitempty"`
	}

	// Result aggregates the outcome of one dispatch.
	Result struct {
		Success bool `json:"success"`
		Sent    int  `json:"sent"`
		Total   int  `json:"total"`
	}

	NewSubscription struct {
		Endpoint  string `json:"endpoint" validate:"required,max=2048,pushorigin"`
		P256dh    string `json:"p256dh" validate:"required,notblank,max=255"`
		Auth      string `json:"auth" validate:"required,notblank,max=255"`
		UserAgent string `json:"user_agent" validate:"max=512"`
		Platform  string `json:"platform" validate:"max=128"`
	}
)

func (nr NotificationRecord) Validate(validate *validator.Validate) error {
	return validate.Struct(nr)
}

func (ns NewSubscription) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}
