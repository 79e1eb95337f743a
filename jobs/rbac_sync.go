package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
)

// GrantInvalidator flushes cached grant sets after a sync run.
type GrantInvalidator interface {
	InvalidateGrants(ctx context.Context) error
}

// RBACSyncJob reconciles role grants against the permission catalog and
// invalidates cached grant sets when anything changed.
type RBACSyncJob struct {
	resolver *rbac.Resolver
	cache    GrantInvalidator
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewRBACSyncJob constructs the job. cache and metrics may be nil.
func NewRBACSyncJob(resolver *rbac.Resolver, cache GrantInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *RBACSyncJob {
	return &RBACSyncJob{resolver: resolver, cache: cache, logger: logger, metrics: metrics}
}

// Run executes one reconciliation pass.
func (j *RBACSyncJob) Run(ctx context.Context, payload RBACSyncPayload) error {
	tracker := j.metrics.Track("rbac_sync")
	return tracker.End(j.run(ctx, payload))
}

func (j *RBACSyncJob) run(ctx context.Context, payload RBACSyncPayload) error {
	policies := rbac.DefaultPolicies
	if len(payload.Roles) > 0 {
		policies = make(map[rbac.Role]rbac.Policy, len(payload.Roles))
		for _, name := range payload.Roles {
			role, ok := rbac.ParseRole(name)
			if !ok {
				if j.logger != nil {
					j.logger.Warn("skipping unknown role", slog.String("role", name))
				}
				continue
			}
			policies[role] = rbac.DefaultPolicies[role]
		}
	}

	results, err := j.resolver.Run(ctx, policies)
	if err != nil {
		return err
	}

	var created int
	for role, result := range results {
		j.metrics.AddGrants(string(role), result.Created)
		created += result.Created
	}
	if created > 0 && j.cache != nil {
		if err := j.cache.InvalidateGrants(ctx); err != nil && j.logger != nil {
			j.logger.Warn("grant cache invalidation", slog.Any("error", err))
		}
	}
	if j.logger != nil {
		j.logger.Info("rbac sync finished", slog.Int("roles", len(results)), slog.Int("created", created))
	}
	return nil
}

// Handle adapts the job to the Asynq handler contract.
func (j *RBACSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RBACSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return j.Run(ctx, payload)
}
