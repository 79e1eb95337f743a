package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	perms    []Permission
	bindings map[Role]map[int64]struct{}
	upserts  int
}

func newMemoryStore(names ...string) *memoryStore {
	store := &memoryStore{bindings: make(map[Role]map[int64]struct{})}
	for i, name := range names {
		perm := Permission{ID: int64(i + 1), Name: name}
		if category, action, ok := SplitPermissionName(name); ok {
			perm.Category = category
			perm.Action = action
		}
		store.perms = append(store.perms, perm)
	}
	return store
}

func (s *memoryStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	return append([]Permission(nil), s.perms...), nil
}

func (s *memoryStore) UpsertRolePermission(ctx context.Context, role Role, permissionID int64) (bool, error) {
	s.upserts++
	if s.bindings[role] == nil {
		s.bindings[role] = make(map[int64]struct{})
	}
	if _, ok := s.bindings[role][permissionID]; ok {
		return false, nil
	}
	s.bindings[role][permissionID] = struct{}{}
	return true, nil
}

func (s *memoryStore) PermissionsForRole(ctx context.Context, role Role) ([]string, error) {
	var names []string
	for _, perm := range s.perms {
		if _, ok := s.bindings[role][perm.ID]; ok {
			names = append(names, perm.Name)
		}
	}
	return names, nil
}

func (s *memoryStore) boundNames(role Role) []string {
	names, _ := s.PermissionsForRole(context.Background(), role)
	return names
}

func TestResolverDoubleFilter(t *testing.T) {
	store := newMemoryStore("missions.read", "missions.delete", "leaves.read")
	resolver := NewResolver(store, nil)

	policies := map[Role]Policy{
		RoleEmployee: {Clauses: []Clause{
			{Categories: []string{"missions", "leaves"}, Actions: []string{"read"}},
		}},
	}
	results, err := resolver.Run(context.Background(), policies)
	require.NoError(t, err)

	require.Equal(t, RoleResult{Granted: 2, Created: 2}, results[RoleEmployee])
	require.ElementsMatch(t, []string{"missions.read", "leaves.read"}, store.boundNames(RoleEmployee))
	require.NotContains(t, store.boundNames(RoleEmployee), "missions.delete")
}

func TestResolverIdempotence(t *testing.T) {
	store := newMemoryStore("missions.read", "missions.create", "leaves.read", "invoices.export")
	resolver := NewResolver(store, nil)

	policies := map[Role]Policy{
		RoleEmployee:   {Clauses: []Clause{{Categories: []string{"missions", "leaves"}, Actions: []string{"read"}}}},
		RoleAccountant: {Clauses: []Clause{{Categories: []string{"invoices"}, Actions: []string{"export"}}}},
	}

	first, err := resolver.Run(context.Background(), policies)
	require.NoError(t, err)
	require.Equal(t, 2, first[RoleEmployee].Created)
	require.Equal(t, 1, first[RoleAccountant].Created)

	second, err := resolver.Run(context.Background(), policies)
	require.NoError(t, err)
	require.Equal(t, 0, second[RoleEmployee].Created)
	require.Equal(t, 0, second[RoleAccountant].Created)
	require.Equal(t, first[RoleEmployee].Granted, second[RoleEmployee].Granted)
}

func TestResolveUnionAbsorbsOverlap(t *testing.T) {
	catalog := []Permission{
		{ID: 1, Name: "missions.read", Category: "missions", Action: "read"},
	}
	policy := Policy{Clauses: []Clause{
		{Categories: []string{"missions"}, Actions: []string{"read"}},
		{Categories: []string{"missions", "leaves"}, Actions: []string{"read", "create"}},
	}}

	granted := Resolve(policy, catalog)
	require.Len(t, granted, 1)
	require.Equal(t, "missions.read", granted[0].Name)
}

func TestResolveEveryActionBlanket(t *testing.T) {
	store := newMemoryStore("missions.read", "missions.delete", "leaves.read", "invoices.read")
	catalog, err := store.ListPermissions(context.Background())
	require.NoError(t, err)

	granted := Resolve(Policy{EveryAction: []string{"read"}}, catalog)
	names := make([]string, 0, len(granted))
	for _, perm := range granted {
		names = append(names, perm.Name)
	}
	require.ElementsMatch(t, []string{"missions.read", "leaves.read", "invoices.read"}, names)
}

func TestResolveEverything(t *testing.T) {
	store := newMemoryStore("missions.read", "missions.delete", "leaves.approve")
	catalog, err := store.ListPermissions(context.Background())
	require.NoError(t, err)

	granted := Resolve(Policy{Everything: true}, catalog)
	require.Len(t, granted, 3)
}

func TestResolveUnknownCategoryIsSilent(t *testing.T) {
	catalog := []Permission{
		{ID: 1, Name: "missions.read", Category: "missions", Action: "read"},
	}
	granted := Resolve(Policy{Clauses: []Clause{
		{Categories: []string{"contracts"}, Actions: []string{"read"}},
	}}, catalog)
	require.Empty(t, granted)
}

func TestResolverEmptyCatalog(t *testing.T) {
	store := newMemoryStore()
	resolver := NewResolver(store, nil)

	results, err := resolver.Run(context.Background(), DefaultPolicies)
	require.NoError(t, err)
	for role, result := range results {
		require.Zero(t, result.Granted, "role %s", role)
		require.Zero(t, result.Created, "role %s", role)
	}
}

func TestSplitPermissionName(t *testing.T) {
	category, action, ok := SplitPermissionName("finance.ap.read")
	require.True(t, ok)
	require.Equal(t, "finance", category)
	require.Equal(t, "ap.read", action)

	_, _, ok = SplitPermissionName("malformed")
	require.False(t, ok)
}
