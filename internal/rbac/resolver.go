package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// RoleResult summarises one role's resolver pass.
type RoleResult struct {
	Granted int
	Created int
}

// Resolver computes per-role grant sets from a declarative policy table and
// persists the bindings idempotently. It is a one-shot batch process, not a
// request handler; re-running it with an unchanged policy and catalog must
// produce zero net change. Bindings that fall out of a policy are not pruned.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Run loads the permission catalog once, resolves every role in the policy
// table, and upserts the resulting bindings. An empty catalog resolves every
// role to an empty grant set; that is a degenerate result, not an error.
func (r *Resolver) Run(ctx context.Context, policies map[Role]Policy) (map[Role]RoleResult, error) {
	catalog, err := r.store.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("rbac: load catalog: %w", err)
	}

	results := make(map[Role]RoleResult, len(policies))
	for _, role := range AllRoles {
		policy, ok := policies[role]
		if !ok {
			continue
		}
		granted := Resolve(policy, catalog)
		result := RoleResult{Granted: len(granted)}
		for _, perm := range granted {
			created, err := r.store.UpsertRolePermission(ctx, role, perm.ID)
			if err != nil {
				return nil, fmt.Errorf("rbac: bind %s to %s: %w", role, perm.Name, err)
			}
			if created {
				result.Created++
			}
		}
		results[role] = result
		if r.logger != nil {
			r.logger.Info("resolved role grants",
				slog.String("role", string(role)),
				slog.Int("granted", result.Granted),
				slog.Int("created", result.Created))
		}
	}
	return results, nil
}

// Resolve computes the grant set for a single policy against the loaded
// catalog. The result is the deduplicated union of all matching clauses,
// sorted by name for stable iteration.
func Resolve(policy Policy, catalog []Permission) []Permission {
	granted := make(map[int64]Permission)

	if policy.Everything {
		for _, perm := range catalog {
			granted[perm.ID] = perm
		}
	}

	for _, action := range policy.EveryAction {
		for _, perm := range catalog {
			if perm.Action == action {
				granted[perm.ID] = perm
			}
		}
	}

	for _, clause := range policy.Clauses {
		for _, perm := range catalog {
			if !containsString(clause.Categories, perm.Category) {
				continue
			}
			if !containsString(clause.Actions, perm.Action) {
				continue
			}
			granted[perm.ID] = perm
		}
	}

	out := make([]Permission, 0, len(granted))
	for _, perm := range granted {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
