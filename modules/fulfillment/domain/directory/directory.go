package directory

import "context"

// Roles understood by the access policy.
const (
	RoleScreener = "screener"
	RolePacker   = "packer"
	RoleShipper  = "shipper"
	RoleAdmin    = "admin"
)

// Account is a person allowed to act on requests or orders. Accounts are
// provisioned out of band; the directory is read-only at runtime.
type Account struct {
	Email  string
	Name   string
	Roles  []string
	Active bool
}

func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role || r == RoleAdmin {
			return true
		}
	}
	return false
}

// Directory resolves actor emails to accounts.
type Directory interface {
	Lookup(ctx context.Context, email string) (*Account, error)
	ListByRole(ctx context.Context, role string) ([]*Account, error)
}
