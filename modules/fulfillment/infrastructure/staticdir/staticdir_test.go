package staticdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/directory"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "directory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"accounts": [
			{"email": "Alice@Sampledesk.Test", "name": "Alice", "roles": ["screener"], "active": true},
			{"email": "mallory@sampledesk.test", "name": "Mallory", "roles": ["screener", "packer"], "active": false}
		]
	}`), 0o600))

	d, err := Load(path)
	require.NoError(t, err)

	// Lookup is case-insensitive.
	a, err := d.Lookup(context.Background(), "alice@sampledesk.test")
	require.NoError(t, err)
	require.Equal(t, "Alice", a.Name)
	require.True(t, a.Active)

	_, err = d.Lookup(context.Background(), "nobody@sampledesk.test")
	require.ErrorIs(t, err, serrors.ErrNotFound)

	screeners, err := d.ListByRole(context.Background(), directory.RoleScreener)
	require.NoError(t, err)
	require.Len(t, screeners, 2)

	roles, active, err := d.RolesFor(context.Background(), "mallory@sampledesk.test")
	require.NoError(t, err)
	require.False(t, active)
	require.Contains(t, roles, directory.RolePacker)

	_, active, err = d.RolesFor(context.Background(), "nobody@sampledesk.test")
	require.NoError(t, err)
	require.False(t, active)
}

func TestAdminHasEveryRole(t *testing.T) {
	t.Parallel()

	d := New([]*directory.Account{
		{Email: "root@sampledesk.test", Roles: []string{directory.RoleAdmin}, Active: true},
	})
	shippers, err := d.ListByRole(context.Background(), directory.RoleShipper)
	require.NoError(t, err)
	require.Len(t, shippers, 1)
}
