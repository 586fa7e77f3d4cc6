package processor

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/model"
)

const (
	defaultDepartmentCacheSize = 1024
	defaultDepartmentCacheTTL  = 10 * time.Minute
)

// Departments resolves department_ids into departments. Resolutions are kept
// in a small expiring LRU since members of one department arrive together.
type Departments struct {
	resolver model.DepartmentResolver
	cache    *expirable.LRU[string, model.Department]
	logger   *logger.Logger
}

var _ Enricher = (*Departments)(nil)

// NewDepartments creates a department enricher. Non-positive size or ttl use defaults.
func NewDepartments(resolver model.DepartmentResolver, size int, ttl time.Duration, logger *logger.Logger) *Departments {
	if size <= 0 {
		size = defaultDepartmentCacheSize
	}
	if ttl <= 0 {
		ttl = defaultDepartmentCacheTTL
	}

	return &Departments{
		resolver: resolver,
		cache:    expirable.NewLRU[string, model.Department](size, nil, ttl),
		logger:   logger,
	}
}

// Enrich sets record.Departments in department_ids order. A department that
// cannot be resolved is kept with its id only.
func (d *Departments) Enrich(ctx context.Context, record *model.UserRecord) error {
	if len(record.DepartmentIDs) == 0 {
		record.Departments = nil
		return nil
	}

	departments := make([]model.Department, 0, len(record.DepartmentIDs))
	for _, id := range record.DepartmentIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if dept, ok := d.cache.Get(id); ok {
			departments = append(departments, dept)
			continue
		}

		dept, err := d.resolver.ResolveDepartment(ctx, id)
		if err != nil {
			d.logger.Warn("Processor: failed to resolve department", "department_id", id, "error", err)
			departments = append(departments, model.Department{ID: id})
			continue
		}
		if dept.ID == "" {
			dept.ID = id
		}
		d.cache.Add(id, dept)
		departments = append(departments, dept)
	}

	record.Departments = departments
	return nil
}
