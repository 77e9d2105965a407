package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"tenant-backup/internal/logging"
)

// RetentionPolicy controls which archives a prune run removes. Zero values
// disable the corresponding rule.
type RetentionPolicy struct {
	// KeepLast keeps at most this many archives per tenant, newest first.
	KeepLast int `mapstructure:"keep_last" yaml:"keep_last"`
	// MaxAge removes archives older than this duration.
	MaxAge time.Duration `mapstructure:"max_age" yaml:"max_age"`
}

// Validate checks the policy rules
func (p *RetentionPolicy) Validate() error {
	if p.KeepLast < 0 {
		return fmt.Errorf("keep_last must not be negative")
	}
	if p.MaxAge < 0 {
		return fmt.Errorf("max_age must not be negative")
	}
	if p.KeepLast == 0 && p.MaxAge == 0 {
		return fmt.Errorf("retention policy has no active rule")
	}
	return nil
}

// RetentionResult reports the outcome of one prune run
type RetentionResult struct {
	Processed int           `json:"processed"`
	Deleted   []ObjectInfo  `json:"deleted"`
	Kept      int           `json:"kept"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
	DryRun    bool          `json:"dry_run"`
}

// Pruner applies a retention policy to the archive store
type Pruner struct {
	provider Provider
	policy   RetentionPolicy
	logger   *logging.Logger
}

// NewPruner creates a pruner over the given provider
func NewPruner(provider Provider, policy RetentionPolicy, logger *logging.Logger) (*Pruner, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Pruner{provider: provider, policy: policy, logger: logger}, nil
}

// Prune applies the retention policy to one tenant's archives, or to every
// tenant when tenantID is zero. With dryRun set it reports what would be
// deleted without touching the store.
func (p *Pruner) Prune(ctx context.Context, tenantID int64, dryRun bool) (*RetentionResult, error) {
	start := time.Now()

	prefix := ""
	if tenantID > 0 {
		prefix = fmt.Sprintf("%d/", tenantID)
	}

	objects, err := p.provider.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	result := &RetentionResult{
		Processed: len(objects),
		DryRun:    dryRun,
	}
	if len(objects) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	byTenant := make(map[string][]ObjectInfo)
	var tenants []string
	for _, object := range objects {
		tenant := tenantPrefix(object.Key)
		if _, seen := byTenant[tenant]; !seen {
			tenants = append(tenants, tenant)
		}
		byTenant[tenant] = append(byTenant[tenant], object)
	}
	sort.Strings(tenants)

	var toDelete []ObjectInfo
	for _, tenant := range tenants {
		group := byTenant[tenant]
		sort.Slice(group, func(i, j int) bool {
			return group[i].ModifiedAt.After(group[j].ModifiedAt)
		})
		toDelete = append(toDelete, p.selectExpired(group)...)
	}

	result.Deleted = toDelete
	result.Kept = len(objects) - len(toDelete)

	if !dryRun {
		for _, object := range toDelete {
			if err := p.provider.Delete(ctx, object.Key); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to delete %s: %v", object.Key, err))
				continue
			}
			p.logger.WithFields(map[string]interface{}{
				"key":         object.Key,
				"modified_at": object.ModifiedAt,
			}).Info("Archive pruned")
		}
	}

	result.Duration = time.Since(start)
	p.logger.WithFields(map[string]interface{}{
		"processed": result.Processed,
		"deleted":   len(result.Deleted),
		"kept":      result.Kept,
		"dry_run":   dryRun,
	}).Info("Retention policy applied")

	return result, nil
}

// selectExpired returns the archives in one tenant group, sorted newest
// first, that the policy removes.
func (p *Pruner) selectExpired(group []ObjectInfo) []ObjectInfo {
	cutoff := time.Time{}
	if p.policy.MaxAge > 0 {
		cutoff = time.Now().Add(-p.policy.MaxAge)
	}

	var expired []ObjectInfo
	for i, object := range group {
		if p.policy.KeepLast > 0 && i >= p.policy.KeepLast {
			expired = append(expired, object)
			continue
		}
		if !cutoff.IsZero() && object.ModifiedAt.Before(cutoff) {
			expired = append(expired, object)
		}
	}
	return expired
}

// tenantPrefix extracts the tenant segment from an archive key
func tenantPrefix(key string) string {
	if idx := strings.IndexByte(key, '/'); idx >= 0 {
		return key[:idx]
	}
	return ""
}
