package notice

import (
	"context"
	"time"

	"github.com/trezcool/homeroom/core/push"
)

// Job statuses
const (
	StatusSuccess    = "success"
	StatusNoSubjects = "no_subjects"
	StatusNoEvents   = "no_events"
	StatusNoPending  = "no_pending"
	StatusWaiting    = "waiting"
)

// Free notice statuses
const (
	FreeNoticePending = "pending"
	FreeNoticeSent    = "sent"
	FreeNoticeFailed  = "failed"
)

type (
	Notification struct {
		ID        int64     `db:"id" json:"id"`
		Title     string    `db:"title" json:"title"`
		Message   string    `db:"message" json:"message"`
		URL       string    `db:"url" json:"url"`
		Type      string    `db:"type" json:"type"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	// TimetableEntry is one lesson of the week; Day goes from 1 (Monday) to 5 (Friday).
	TimetableEntry struct {
		ID      int64  `db:"id" json:"id"`
		Day     int    `db:"day" json:"day"`
		Subject string `db:"subject" json:"subject"`
	}

	Homework struct {
		ID      int64  `db:"id" json:"id"`
		Subject string `db:"subject" json:"subject"`
		Content string `db:"content" json:"content"`
		Note    string `db:"note" json:"note"`
	}

	// Event is announced once, on its DD/MM date.
	Event struct {
		ID      int64  `db:"id" json:"id"`
		Date    string `db:"date" json:"date"`
		Title   string `db:"title" json:"title"`
		Message string `db:"message" json:"message"`
		IsSent  bool   `db:"is_sent" json:"is_sent"`
	}

	FreeNotice struct {
		ID        int64     `db:"id" json:"id"`
		Seq       int       `db:"seq" json:"seq"`
		Title     string    `db:"title" json:"title"`
		Message   string    `db:"message" json:"message"`
		SendAfter time.Time `db:"send_after" json:"send_after"`
		Status    string    `db:"status" json:"status"`
	}

	JobResult struct {
		Status       string        `json:"status"`
		Sent         int           `json:"sent,omitempty"`
		Title        string        `json:"title,omitempty"`
		Cleaned      int64         `json:"cleaned,omitempty"`
		DiffMillis   int64         `json:"diff,omitempty"`
		Notification *Notification `json:"notification,omitempty"`
	}
)

func (n Notification) Record() push.NotificationRecord {
	createdAt := n.CreatedAt
	return push.NotificationRecord{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		URL:       n.URL,
		Type:      n.Type,
		CreatedAt: &createdAt,
	}
}

type (
	// NotificationInserter is all a job needs to get a notification pushed:
	// the insert trigger takes care of the dispatch.
	NotificationInserter interface {
		InsertNotification(ctx context.Context, rec push.NotificationRecord) (Notification, error)
	}

	NotificationRepository interface {
		NotificationInserter

		LatestNotifications(ctx context.Context, limit int) ([]Notification, error)
		DeleteNotificationsBefore(ctx context.Context, before time.Time) (int64, error)
	}

	ScheduleRepository interface {
		QueryTimetable(ctx context.Context) ([]TimetableEntry, error)
		QueryHomework(ctx context.Context) ([]Homework, error)
	}

	EventRepository interface {
		QueryUnsentEvents(ctx context.Context, date string) ([]Event, error)
		MarkEventSent(ctx context.Context, id int64) error
	}

	FreeNoticeRepository interface {
		// TopPendingFreeNotice returns the pending notice with the highest seq, or core.ErrNotFound.
		TopPendingFreeNotice(ctx context.Context) (FreeNotice, error)
		SetFreeNoticeStatus(ctx context.Context, id int64, status string) error
	}

	Repository interface {
		NotificationRepository
		ScheduleRepository
		EventRepository
		FreeNoticeRepository
	}
)
