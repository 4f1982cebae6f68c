package inmemdb

import (
	"sync"

	"github.com/trezcool/homeroom/core/notice"
	"github.com/trezcool/homeroom/core/push"
)

type (
	// InsertHook plays the role of the notification insert trigger.
	InsertHook func(rec push.NotificationRecord)

	DB struct {
		subscriptions *subscriptionTable
		notices       *noticeTables
	}

	subscriptionTable struct {
		t     map[string]*push.PushSubscription
		mutex sync.RWMutex
	}

	noticeTables struct {
		pkCount       int64
		notifications []notice.Notification
		timetable     []notice.TimetableEntry
		homework      []notice.Homework
		events        []notice.Event
		freeNotices   []notice.FreeNotice
		onInsert      InsertHook
		mutex         sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		subscriptions: &subscriptionTable{t: make(map[string]*push.PushSubscription)},
		notices:       new(noticeTables),
	}
}

// OnNotificationInsert registers a hook called after every inserted notification.
func (db *DB) OnNotificationInsert(hook InsertHook) {
	db.notices.mutex.Lock()
	defer db.notices.mutex.Unlock()
	db.notices.onInsert = hook
}

// Seed loads the tables the notification jobs read from.
func (db *DB) Seed(timetable []notice.TimetableEntry, homework []notice.Homework, events []notice.Event, freeNotices []notice.FreeNotice) {
	db.notices.mutex.Lock()
	defer db.notices.mutex.Unlock()

	db.notices.timetable = append(db.notices.timetable, timetable...)
	db.notices.homework = append(db.notices.homework, homework...)
	db.notices.events = append(db.notices.events, events...)
	db.notices.freeNotices = append(db.notices.freeNotices, freeNotices...)
}
