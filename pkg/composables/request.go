package composables

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sampledesk/sampledesk/pkg/constants"
)

type Params struct {
	IP        string
	UserAgent string
	Request   *http.Request
	Writer    http.ResponseWriter
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseLogger returns the logger from the context, or a plain entry when the
// middleware did not run (background jobs, tests).
func UseLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(constants.LoggerKey)
	if logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logger.(*logrus.Entry)
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// WithActor records the acting identity (an email from the user directory).
func WithActor(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, constants.ActorKey, email)
}

// UseActor returns the acting identity, or "" when unauthenticated.
func UseActor(ctx context.Context) string {
	actor, _ := ctx.Value(constants.ActorKey).(string)
	return actor
}
