package cron

import (
	"github.com/NuoNuo720/TheNuo2/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartOutboxMaintenance periodically reclaims space held by expired and
// acknowledged outbox entries. Badger's TTL handles the retention window;
// this job only compacts the value log behind it.
func StartOutboxMaintenance(outbox *repository.OutboxRepository) *cron.Cron {
	c := cron.New()

	c.AddFunc("@hourly", func() {
		outbox.RunGC()
		logrus.Debug("Outbox value log GC pass finished")
	})

	c.Start()
	return c
}
