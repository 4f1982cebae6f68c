package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/notice"
	"github.com/trezcool/homeroom/core/push"
)

type noticeRepository struct {
	db *noticeTables
}

var _ notice.Repository = (*noticeRepository)(nil) // interface compliance check

func NewNoticeRepository(db *DB) *noticeRepository {
	return &noticeRepository{db: db.notices}
}

func (repo *noticeRepository) InsertNotification(_ context.Context, rec push.NotificationRecord) (notice.Notification, error) {
	repo.db.mutex.Lock()
	repo.db.pkCount++
	n := notice.Notification{
		ID:        repo.db.pkCount,
		Title:     rec.Title,
		Message:   rec.Message,
		URL:       rec.URL,
		Type:      rec.Type,
		CreatedAt: time.Now().UTC(),
	}
	repo.db.notifications = append(repo.db.notifications, n)
	hook := repo.db.onInsert
	repo.db.mutex.Unlock()

	if hook != nil {
		hook(n.Record())
	}
	return n, nil
}

func (repo *noticeRepository) LatestNotifications(_ context.Context, limit int) ([]notice.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ns := make([]notice.Notification, 0, limit)
	for i := len(repo.db.notifications) - 1; i >= 0 && len(ns) < limit; i-- {
		ns = append(ns, repo.db.notifications[i])
	}
	return ns, nil
}

func (repo *noticeRepository) DeleteNotificationsBefore(_ context.Context, before time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	kept := repo.db.notifications[:0]
	for _, n := range repo.db.notifications {
		if !n.CreatedAt.Before(before) {
			kept = append(kept, n)
		}
	}
	count := int64(len(repo.db.notifications) - len(kept))
	repo.db.notifications = kept
	return count, nil
}

func (repo *noticeRepository) QueryTimetable(context.Context) ([]notice.TimetableEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return append([]notice.TimetableEntry(nil), repo.db.timetable...), nil
}

func (repo *noticeRepository) QueryHomework(context.Context) ([]notice.Homework, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return append([]notice.Homework(nil), repo.db.homework...), nil
}

func (repo *noticeRepository) QueryUnsentEvents(_ context.Context, date string) ([]notice.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var evs []notice.Event
	for _, ev := range repo.db.events {
		if ev.Date == date && !ev.IsSent {
			evs = append(evs, ev)
		}
	}
	return evs, nil
}

func (repo *noticeRepository) MarkEventSent(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.events {
		if repo.db.events[i].ID == id {
			repo.db.events[i].IsSent = true
		}
	}
	return nil
}

func (repo *noticeRepository) TopPendingFreeNotice(context.Context) (notice.FreeNotice, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var (
		top   notice.FreeNotice
		found bool
	)
	for _, fn := range repo.db.freeNotices {
		if fn.Status == notice.FreeNoticePending && (!found || fn.Seq > top.Seq) {
			top, found = fn, true
		}
	}
	if !found {
		return notice.FreeNotice{}, core.ErrNotFound
	}
	return top, nil
}

func (repo *noticeRepository) SetFreeNoticeStatus(_ context.Context, id int64, status string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.freeNotices {
		if repo.db.freeNotices[i].ID == id {
			repo.db.freeNotices[i].Status = status
		}
	}
	return nil
}
