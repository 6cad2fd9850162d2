package notifications

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/pkg/application"
)

const webhookReplayTTL = 5 * time.Minute

// registerEventHandlers wires a trace of every outbox status change into the
// application log.
func registerEventHandlers(app application.Application) {
	logger := app.Logger()
	app.EventPublisher().Subscribe(func(event *message.StatusChangedEvent) {
		logger.WithFields(logrus.Fields{
			"message_id": event.Result.ID,
			"type":       event.Result.Type,
			"from":       event.Previous,
			"to":         event.Result.Status,
			"attempts":   event.Result.AttemptCount,
		}).Info("outbox message status changed")
	})
}
