package notice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/push"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var (
	nowFunc = time.Now // mockable

	errTitleRequired = errors.New("title is required")
)

type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   core.Logger
	conf     core.JobsConfig
	loc      *time.Location
}

func NewService(repo Repository, validate *validator.Validate, logger core.Logger, conf core.JobsConfig) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		logger:   logger,
		conf:     conf,
		loc:      conf.Location(),
	}
}

// Notify stores a notification. The database insert trigger dispatches it to subscribers.
func (svc *Service) Notify(ctx context.Context, rec push.NotificationRecord) (Notification, error) {
	if err := rec.Validate(svc.validate); err != nil {
		return Notification{}, err
	}
	rec.Title = core.CleanString(rec.Title)
	if rec.Title == "" {
		return Notification{}, core.NewValidationError(errTitleRequired, core.FieldError{Field: "title", Error: errTitleRequired.Error()})
	}
	if rec.URL == "" {
		rec.URL = "/"
	}
	rec.ID, rec.CreatedAt = 0, nil

	n, err := svc.repo.InsertNotification(ctx, rec)
	return n, errors.Wrap(err, "inserting notification")
}

// History returns the newest notifications first.
func (svc *Service) History(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	} else if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	ns, err := svc.repo.LatestNotifications(ctx, limit)
	return ns, errors.Wrap(err, "querying notifications")
}

// Latest returns the newest notification or core.ErrNotFound.
func (svc *Service) Latest(ctx context.Context) (Notification, error) {
	ns, err := svc.repo.LatestNotifications(ctx, 1)
	if err != nil {
		return Notification{}, errors.Wrap(err, "querying notifications")
	}
	if len(ns) == 0 {
		return Notification{}, core.ErrNotFound
	}
	return ns[0], nil
}

func (svc *Service) now() time.Time {
	return nowFunc().In(svc.loc)
}

func (svc *Service) insert(ctx context.Context, title, message, typ string) (Notification, error) {
	return svc.repo.InsertNotification(ctx, push.NotificationRecord{
		Title:   title,
		Message: message,
		Type:    typ,
		URL:     "/",
	})
}

// SendDaily sums up the homework of the next school day in one notification.
func (svc *Service) SendDaily(ctx context.Context) (JobResult, error) {
	timetable, err := svc.repo.QueryTimetable(ctx)
	if err != nil {
		return JobResult{}, errors.Wrap(err, "querying timetable")
	}
	homework, err := svc.repo.QueryHomework(ctx)
	if err != nil {
		return JobResult{}, errors.Wrap(err, "querying homework")
	}

	day := schoolDay(svc.now(), svc.conf.DailyCutoffHour)
	message, ok := dailyMessage(day, timetable, homework)
	if !ok {
		svc.logger.Info(fmt.Sprintf("jobs.daily: no subjects on day %d", day))
		return JobResult{Status: StatusNoSubjects}, nil
	}

	n, err := svc.insert(ctx, dailyTitle, message, push.TypeDaily)
	if err != nil {
		return JobResult{}, errors.Wrap(err, "inserting daily notification")
	}
	svc.logger.Info("jobs.daily: notification inserted", core.LogFields{"notification_id": n.ID, "day": day})
	return JobResult{Status: StatusSuccess, Sent: 1, Notification: &n}, nil
}

// SendEvents announces today's events, each one only once.
func (svc *Service) SendEvents(ctx context.Context) (JobResult, error) {
	date := svc.now().Format("02/01")
	events, err := svc.repo.QueryUnsentEvents(ctx, date)
	if err != nil {
		return JobResult{}, errors.Wrap(err, "querying events")
	}
	if len(events) == 0 {
		return JobResult{Status: StatusNoEvents}, nil
	}

	var sent int
	for _, ev := range events {
		if _, err = svc.insert(ctx, ev.Title, ev.Message, push.TypeEvent); err != nil {
			svc.logger.Error(fmt.Sprintf("jobs.events: inserting %q", ev.Title), err)
			continue
		}
		if err = svc.repo.MarkEventSent(ctx, ev.ID); err != nil {
			svc.logger.Error(fmt.Sprintf("jobs.events: marking %q sent", ev.Title), err)
		}
		sent++
	}
	return JobResult{Status: StatusSuccess, Sent: sent}, nil
}

// ProcessFreeNotice sends the highest-seq pending notice once its send time is within the window.
func (svc *Service) ProcessFreeNotice(ctx context.Context) (JobResult, error) {
	fn, err := svc.repo.TopPendingFreeNotice(ctx)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return JobResult{Status: StatusNoPending}, nil
		}
		return JobResult{}, errors.Wrap(err, "querying free notices")
	}

	diff := svc.now().Sub(fn.SendAfter)
	if diff < 0 {
		diff = -diff
	}
	if diff > svc.conf.FreeNoticeWindow {
		return JobResult{Status: StatusWaiting, DiffMillis: diff.Milliseconds()}, nil
	}

	if _, err = svc.insert(ctx, fn.Title, fn.Message, push.TypeFree); err != nil {
		if sErr := svc.repo.SetFreeNoticeStatus(ctx, fn.ID, FreeNoticeFailed); sErr != nil {
			svc.logger.Error("jobs.freenotice: marking failed", sErr)
		}
		return JobResult{}, errors.Wrap(err, "inserting free notice")
	}
	if err = svc.repo.SetFreeNoticeStatus(ctx, fn.ID, FreeNoticeSent); err != nil {
		svc.logger.Error("jobs.freenotice: marking sent", err)
	}
	return JobResult{Status: StatusSuccess, Sent: 1, Title: fn.Title}, nil
}

// Cleanup deletes notifications older than the retention period.
func (svc *Service) Cleanup(ctx context.Context) (JobResult, error) {
	cutoff := nowFunc().Add(-svc.conf.Retention)
	count, err := svc.repo.DeleteNotificationsBefore(ctx, cutoff)
	if err != nil {
		return JobResult{}, errors.Wrap(err, "deleting old notifications")
	}
	svc.logger.Info(fmt.Sprintf("jobs.cleanup: deleted %d old notifications", count))
	return JobResult{Status: StatusSuccess, Cleaned: count}, nil
}

// Daily summary

const (
	dailyTitle      = "📚 Bài tập hôm nay"
	noHomeworkMark  = "Không có bài tập"
	greeting        = "Chào bạn! "
	noHomeworkFmt   = "Hôm nay có môn %s không có bài tập. "
	withHomeworkFmt = "Các môn có bài tập: %s."
)

// schoolDay returns the weekday (1 = Monday … 5 = Friday) the summary is about:
// after the cutoff hour it is the next day, and weekends roll over to Monday.
func schoolDay(now time.Time, cutoffHour int) int {
	day := int(now.Weekday())
	if now.Hour() >= cutoffHour {
		day++
	}
	if day >= 6 || day == 0 {
		day = 1
	}
	return day
}

// dailyMessage builds the summary text; ok is false when there is no lesson that day.
func dailyMessage(day int, timetable []TimetableEntry, homework []Homework) (msg string, ok bool) {
	var subjects []string
	seen := make(map[string]bool)
	for _, entry := range timetable {
		if entry.Day != day {
			continue
		}
		subject := strings.ToLower(entry.Subject)
		if !seen[subject] {
			seen[subject] = true
			subjects = append(subjects, subject)
		}
	}
	if len(subjects) == 0 {
		return "", false
	}

	var without, with []string
	for _, subject := range subjects {
		if hasHomework(subject, homework) {
			with = append(with, subject)
		} else {
			without = append(without, subject)
		}
	}

	var b strings.Builder
	b.WriteString(greeting)
	if len(without) > 0 {
		fmt.Fprintf(&b, noHomeworkFmt, strings.Join(without, ", "))
	}
	if len(with) > 0 {
		fmt.Fprintf(&b, withHomeworkFmt, strings.Join(with, ", "))
	}
	return b.String(), true
}

func hasHomework(subject string, homework []Homework) bool {
	var contents []string
	for _, hw := range homework {
		if !strings.Contains(strings.ToLower(hw.Subject), subject) {
			continue
		}
		content := hw.Content
		if content == "" {
			content = hw.Note
		}
		if content != "" {
			contents = append(contents, content)
		}
	}
	if len(contents) == 0 {
		return false
	}
	for _, c := range contents {
		if strings.Contains(c, noHomeworkMark) {
			return false
		}
	}
	return true
}
