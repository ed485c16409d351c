package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"example.com/planner/services/calendar/config"
	"example.com/planner/services/calendar/internal/repository"
)

// NotificationJanitor prunes notifications older than the retention window
// on a cron schedule
type NotificationJanitor struct {
	repo      repository.Repository
	log       *logrus.Logger
	cron      *cron.Cron
	schedule  string
	retention time.Duration
}

func NewNotificationJanitor(repo repository.Repository, log *logrus.Logger, cfg config.NotificationsConfig) *NotificationJanitor {
	return &NotificationJanitor{
		repo:      repo,
		log:       log,
		cron:      cron.New(),
		schedule:  cfg.CleanupSchedule,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}
}

func (j *NotificationJanitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.pruneOnce); err != nil {
		return err
	}
	j.cron.Start()
	j.log.WithFields(logrus.Fields{
		"schedule":  j.schedule,
		"retention": j.retention,
	}).Info("Notification retention janitor started")
	return nil
}

// Stop halts the scheduler and waits for a running prune to finish
func (j *NotificationJanitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *NotificationJanitor) pruneOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)
	removed, err := j.repo.DeleteNotificationsBefore(ctx, cutoff)
	if err != nil {
		j.log.WithError(err).Error("Failed to prune old notifications")
		return
	}
	if removed > 0 {
		j.log.WithField("removed", removed).Info("Pruned old notifications")
	}
}
