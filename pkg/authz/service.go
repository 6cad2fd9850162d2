package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/sirupsen/logrus"

	"github.com/sampledesk/sampledesk/pkg/serrors"
)

// RoleSource resolves an actor (an email) to its directory roles. User and
// role management itself lives outside this system; only this lookup is
// consumed.
type RoleSource interface {
	RolesFor(ctx context.Context, actor string) (roles []string, active bool, err error)
}

type Config struct {
	ModelPath  string
	PolicyPath string
	Roles      RoleSource
	Logger     *logrus.Logger
}

func (c Config) validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("authz: model path is required")
	}
	if c.PolicyPath == "" {
		return fmt.Errorf("authz: policy path is required")
	}
	if c.Roles == nil {
		return fmt.Errorf("authz: role source is required")
	}
	return nil
}

// Service answers capability questions ("may this actor pack orders?") by
// mapping directory roles through a casbin policy.
type Service struct {
	enforcer *casbin.Enforcer
	roles    RoleSource
	logger   *logrus.Entry
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var logger *logrus.Entry
	if cfg.Logger != nil {
		logger = cfg.Logger.WithField("component", "authz")
	} else {
		logger = logrus.WithField("component", "authz")
	}

	enf, err := casbin.NewEnforcer(cfg.ModelPath, fileadapter.NewAdapter(cfg.PolicyPath))
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}
	if err := enf.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz: failed to load policies: %w", err)
	}

	return &Service{enforcer: enf, roles: cfg.Roles, logger: logger}, nil
}

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// NewServiceWithPolicies builds a Service from in-memory policy triples
// (role, object, action). Used by tests and seed tooling.
func NewServiceWithPolicies(roles RoleSource, policies [][3]string, logger *logrus.Logger) (*Service, error) {
	if roles == nil {
		return nil, fmt.Errorf("authz: role source is required")
	}

	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to build model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}
	for _, p := range policies {
		if _, err := enf.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("authz: failed to add policy %v: %w", p, err)
		}
	}

	entry := logrus.WithField("component", "authz")
	if logger != nil {
		entry = logger.WithField("component", "authz")
	}
	return &Service{enforcer: enf, roles: roles, logger: entry}, nil
}

// Require returns ErrUnauthorized unless actor is active in the directory and
// at least one of its roles grants (object, action).
func (s *Service) Require(ctx context.Context, actor, object, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return fmt.Errorf("%w: missing actor", serrors.ErrUnauthorized)
	}

	roles, active, err := s.roles.RolesFor(ctx, actor)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("%w: account %s is inactive", serrors.ErrUnauthorized, actor)
	}

	for _, role := range roles {
		allowed, err := s.enforcer.Enforce(role, object, action)
		if err != nil {
			return fmt.Errorf("authz: enforce failed: %w", err)
		}
		if allowed {
			return nil
		}
	}

	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"actor":  actor,
		"object": object,
		"action": action,
	}).Warn("authz deny")
	return fmt.Errorf("%w: %s may not %s %s", serrors.ErrUnauthorized, actor, action, object)
}
