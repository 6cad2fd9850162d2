package staticdir

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/directory"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

// Directory is a file-backed read-only account directory. Accounts are
// provisioned by editing the JSON file and restarting; the file is read once
// at startup.
type Directory struct {
	byEmail map[string]*directory.Account
}

type accountFile struct {
	Accounts []struct {
		Email  string   `json:"email"`
		Name   string   `json:"name"`
		Roles  []string `json:"roles"`
		Active bool     `json:"active"`
	} `json:"accounts"`
}

func Load(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}
	var file accountFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse directory file: %w", err)
	}

	d := &Directory{byEmail: make(map[string]*directory.Account, len(file.Accounts))}
	for _, a := range file.Accounts {
		email := strings.ToLower(strings.TrimSpace(a.Email))
		if email == "" {
			return nil, fmt.Errorf("directory file: account with empty email")
		}
		d.byEmail[email] = &directory.Account{
			Email:  email,
			Name:   a.Name,
			Roles:  a.Roles,
			Active: a.Active,
		}
	}
	return d, nil
}

// New builds a directory from accounts directly, used for seeding and tests.
func New(accounts []*directory.Account) *Directory {
	d := &Directory{byEmail: make(map[string]*directory.Account, len(accounts))}
	for _, a := range accounts {
		d.byEmail[strings.ToLower(a.Email)] = a
	}
	return d
}

func (d *Directory) Lookup(_ context.Context, email string) (*directory.Account, error) {
	a, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, serrors.ErrNotFound
	}
	return a, nil
}

func (d *Directory) ListByRole(_ context.Context, role string) ([]*directory.Account, error) {
	var out []*directory.Account
	for _, a := range d.byEmail {
		if a.HasRole(role) {
			out = append(out, a)
		}
	}
	return out, nil
}

// RolesFor adapts the directory to the capability checker's role source.
func (d *Directory) RolesFor(ctx context.Context, actor string) ([]string, bool, error) {
	a, err := d.Lookup(ctx, actor)
	if err != nil {
		return nil, false, nil
	}
	return a.Roles, a.Active, nil
}
