package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sampledesk/sampledesk/pkg/application"
	"github.com/sampledesk/sampledesk/pkg/configuration"
	"github.com/sampledesk/sampledesk/pkg/constants"
	"github.com/sampledesk/sampledesk/pkg/middleware"
	"github.com/sampledesk/sampledesk/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, options.Configuration.RequestIDHeader),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),
		middleware.RequestParams(options.Configuration.RealIPHeader),
		middleware.Actor(),
	}
	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app), nil
}
