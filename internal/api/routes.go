package api

import (
	"net/http"

	"github.com/sheetdrop/sheetdrop/internal/blob"
	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/convert"
	"github.com/sheetdrop/sheetdrop/internal/quota"
	"github.com/sheetdrop/sheetdrop/pkg/handlers"
	"github.com/sheetdrop/sheetdrop/pkg/routes"
)

func registerRoutes(r routes.System, runtime *Runtime, domain *Domain, cfg *config.Config) {
	convertHandler := convert.NewHandler(domain.Convert, runtime.Logger, runtime.Pagination)
	quotaHandler := quota.NewHandler(domain.Quotas, runtime.Logger, cfg.Quota.FreeAllotment)
	blobHandler := blob.NewHandler(runtime.Blobs, runtime.Logger, cfg.Blob.MaxUploadSizeBytes())

	r.RegisterGroup(routes.Group{
		Prefix:      "/api",
		Description: "Conversion service API",
		Children: []routes.Group{
			convertHandler.Routes(),
			quotaHandler.Routes(),
		},
	})

	// The blob surface sits outside /api: presigned URLs address it
	// directly, the way a hosted object store endpoint would be.
	r.RegisterGroup(blobHandler.Routes())

	r.RegisterRoute(routes.Route{
		Method:  "GET",
		Pattern: "/healthz",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		},
	})
}
