package rbac

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Service answers grant lookups for the authorization middleware. Reads go
// through the Redis cache when one is configured; concurrent cold lookups for
// the same role collapse into a single store round trip.
type Service struct {
	store  Store
	cache  *GrantCache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service. The cache may be nil.
func NewService(store Store, cache *GrantCache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// EffectivePermissions returns the permission names currently bound to a role.
func (s *Service) EffectivePermissions(ctx context.Context, role Role) ([]string, error) {
	if names, ok, err := s.cache.Fetch(ctx, role); err != nil {
		if s.logger != nil {
			s.logger.Warn("grant cache fetch", slog.String("role", string(role)), slog.Any("error", err))
		}
	} else if ok {
		return names, nil
	}

	result, err, _ := s.group.Do(string(role), func() (any, error) {
		names, err := s.store.PermissionsForRole(ctx, role)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Store(ctx, role, names); err != nil && s.logger != nil {
			s.logger.Warn("grant cache store", slog.String("role", string(role)), slog.Any("error", err))
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	names, _ := result.([]string)
	return names, nil
}

// ListPermissions returns the full catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// InvalidateGrants flushes cached grant sets after a resolver run.
func (s *Service) InvalidateGrants(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}
