package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/notice"
	"github.com/trezcool/homeroom/core/push"
)

const notificationColumns = "id, title, message, url, type, created_at"

type noticeRepository struct {
	db core.DB
}

var _ notice.Repository = (*noticeRepository)(nil) // interface compliance check

func NewNoticeRepository(db core.DB) *noticeRepository {
	return &noticeRepository{db: db}
}

// InsertNotification fires the notification_inserted trigger.
func (repo noticeRepository) InsertNotification(ctx context.Context, rec push.NotificationRecord) (notice.Notification, error) {
	var n notice.Notification
	err := repo.db.GetContext(ctx, &n, `
		INSERT INTO notification (title, message, url, type)
		VALUES ($1, $2, $3, $4)
		RETURNING `+notificationColumns,
		rec.Title, rec.Message, rec.URL, rec.Type,
	)
	return n, errors.Wrap(err, "inserting notification")
}

func (repo noticeRepository) LatestNotifications(ctx context.Context, limit int) ([]notice.Notification, error) {
	ns := make([]notice.Notification, 0, limit)
	err := repo.db.SelectContext(ctx, &ns,
		"SELECT "+notificationColumns+" FROM notification ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	return ns, errors.Wrap(err, "selecting notifications")
}

func (repo noticeRepository) DeleteNotificationsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM notification WHERE created_at < $1", before.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting notifications")
	}
	return res.RowsAffected()
}

func (repo noticeRepository) QueryTimetable(ctx context.Context) ([]notice.TimetableEntry, error) {
	var entries []notice.TimetableEntry
	err := repo.db.SelectContext(ctx, &entries, "SELECT id, day, subject FROM tkb ORDER BY day, id")
	return entries, errors.Wrap(err, "selecting tkb")
}

func (repo noticeRepository) QueryHomework(ctx context.Context) ([]notice.Homework, error) {
	var hws []notice.Homework
	err := repo.db.SelectContext(ctx, &hws, "SELECT id, subject, content, note FROM btvn ORDER BY id")
	return hws, errors.Wrap(err, "selecting btvn")
}

func (repo noticeRepository) QueryUnsentEvents(ctx context.Context, date string) ([]notice.Event, error) {
	var evs []notice.Event
	err := repo.db.SelectContext(ctx, &evs,
		"SELECT id, date, title, message, is_sent FROM events WHERE date = $1 AND NOT is_sent ORDER BY id", date)
	return evs, errors.Wrap(err, "selecting events")
}

func (repo noticeRepository) MarkEventSent(ctx context.Context, id int64) error {
	_, err := repo.db.ExecContext(ctx, "UPDATE events SET is_sent = true WHERE id = $1", id)
	return errors.Wrap(err, "updating event")
}

func (repo noticeRepository) TopPendingFreeNotice(ctx context.Context) (notice.FreeNotice, error) {
	var fn notice.FreeNotice
	err := repo.db.GetContext(ctx, &fn, `
		SELECT id, seq, title, message, send_after, status
		FROM free_notices
		WHERE status = $1
		ORDER BY seq DESC
		LIMIT 1`, notice.FreeNoticePending)
	if err == sql.ErrNoRows {
		return fn, core.ErrNotFound
	}
	return fn, errors.Wrap(err, "selecting free_notices")
}

func (repo noticeRepository) SetFreeNoticeStatus(ctx context.Context, id int64, status string) error {
	_, err := repo.db.ExecContext(ctx, "UPDATE free_notices SET status = $1 WHERE id = $2", status, id)
	return errors.Wrap(err, "updating free_notice")
}
