package api

import (
	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/convert"
	"github.com/sheetdrop/sheetdrop/internal/extract"
	"github.com/sheetdrop/sheetdrop/internal/jobs"
	"github.com/sheetdrop/sheetdrop/internal/quota"
)

// Domain holds the domain systems that comprise the service.
type Domain struct {
	Jobs    jobs.System
	Quotas  quota.System
	Convert convert.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	jobSys := jobs.New(
		runtime.Database.DB(),
		runtime.Logger,
		runtime.Pagination,
	)

	quotaSys := quota.New(
		runtime.Database.DB(),
		&cfg.Quota,
		runtime.Logger,
	)

	engine := extract.NewEngine(cfg.Extraction, runtime.Logger)

	convertSys := convert.NewOrchestrator(
		jobSys,
		quotaSys,
		runtime.Blobs,
		engine,
		cfg.Blob,
		cfg.Convert,
		runtime.Logger,
	)

	return &Domain{
		Jobs:    jobSys,
		Quotas:  quotaSys,
		Convert: convertSys,
	}
}
