package notifications

import (
	"embed"

	"github.com/sampledesk/sampledesk/modules/notifications/infrastructure/persistence"
	"github.com/sampledesk/sampledesk/modules/notifications/infrastructure/resend"
	"github.com/sampledesk/sampledesk/modules/notifications/presentation/controllers"
	"github.com/sampledesk/sampledesk/modules/notifications/services"
	"github.com/sampledesk/sampledesk/pkg/application"
	"github.com/sampledesk/sampledesk/pkg/configuration"
	"github.com/sampledesk/sampledesk/pkg/webhooks"
)

//go:embed infrastructure/persistence/schema/notifications-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	sender := resend.New(
		conf.Mailer.APIKey,
		resend.WithBaseURL(conf.Mailer.BaseURL),
	)
	mailer := services.NewMailerService(services.MailerServiceOptions{
		Messages:    persistence.NewMessageRepository(),
		Sender:      sender,
		Publisher:   app.EventPublisher(),
		From:        conf.Mailer.From,
		MaxAttempts: conf.Outbox.MaxAttempts,
		BaseBackoff: conf.Outbox.BaseBackoff,
		SendTimeout: conf.Mailer.SendTimeout,
	})
	app.RegisterServices(mailer)

	app.RegisterControllers(controllers.NewEmailsController(app))
	if conf.Mailer.WebhookSecret != "" {
		verifier, err := webhooks.NewHMACVerifier(conf.Mailer.WebhookSecret)
		if err != nil {
			return err
		}
		app.RegisterControllers(
			controllers.NewWebhooksController(app, verifier, webhooks.NewTTLReplayProtector(webhookReplayTTL)),
		)
	} else {
		app.Logger().Warn("RESEND_WEBHOOK_SECRET is not set; webhook ingress disabled")
	}

	app.Migrations().RegisterSchema(&migrationFiles)
	registerEventHandlers(app)

	return nil
}

func (m *Module) Name() string {
	return "notifications"
}
