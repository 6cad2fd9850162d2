package modules

import (
	"github.com/sampledesk/sampledesk/modules/fulfillment"
	"github.com/sampledesk/sampledesk/modules/notifications"
	"github.com/sampledesk/sampledesk/pkg/application"
)

// BuiltInModules in load order: fulfillment looks up the mailer registered
// by notifications.
var BuiltInModules = []application.Module{
	notifications.NewModule(),
	fulfillment.NewModule(),
}

func Load(app application.Application, mods ...application.Module) error {
	for _, module := range mods {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
