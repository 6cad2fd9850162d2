package fulfillment

import (
	"embed"

	"github.com/sampledesk/sampledesk/modules/fulfillment/infrastructure/persistence"
	"github.com/sampledesk/sampledesk/modules/fulfillment/infrastructure/staticdir"
	"github.com/sampledesk/sampledesk/modules/fulfillment/presentation/controllers"
	"github.com/sampledesk/sampledesk/modules/fulfillment/services"
	notifservices "github.com/sampledesk/sampledesk/modules/notifications/services"
	"github.com/sampledesk/sampledesk/pkg/application"
	"github.com/sampledesk/sampledesk/pkg/authz"
	"github.com/sampledesk/sampledesk/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/fulfillment-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

// Module depends on notifications for the outbox; load it after the
// notifications module.
type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	dir, err := staticdir.Load(conf.Authz.DirectoryPath)
	if err != nil {
		return err
	}
	authzService, err := authz.NewService(authz.Config{
		ModelPath:  conf.Authz.ModelPath,
		PolicyPath: conf.Authz.PolicyPath,
		Roles:      dir,
		Logger:     app.Logger(),
	})
	if err != nil {
		return err
	}

	mailer := app.Service(notifservices.MailerService{}).(*notifservices.MailerService)

	requestRepo := persistence.NewRequestRepository()
	orderRepo := persistence.NewOrderRepository()
	auditRepo := persistence.NewAuditLogRepository()
	sequences := services.NewSequenceService(persistence.NewSequenceRepository())

	requestService := services.NewRequestService(services.RequestServiceOptions{
		Requests:  requestRepo,
		Orders:    orderRepo,
		Audit:     auditRepo,
		Sequences: sequences,
		Authz:     authzService,
		Directory: dir,
		Notifier:  mailer,
		Publisher: app.EventPublisher(),
	})
	orderService := services.NewOrderService(services.OrderServiceOptions{
		Orders:    orderRepo,
		Requests:  requestRepo,
		Audit:     auditRepo,
		Authz:     authzService,
		Directory: dir,
		Notifier:  mailer,
		Publisher: app.EventPublisher(),
	})
	app.RegisterServices(
		sequences,
		requestService,
		orderService,
		services.NewAuditLogService(auditRepo),
	)

	app.RegisterControllers(
		controllers.NewRequestsController(app),
		controllers.NewOrdersController(app),
		controllers.NewAuditLogController(app),
	)

	app.Migrations().RegisterSchema(&migrationFiles)

	return nil
}

func (m *Module) Name() string {
	return "fulfillment"
}
