package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// TenantHeader marks which school a request belongs to. A cookie of the same
// name is honored when the header is absent; no marker at all selects the
// default tenant.
const TenantHeader = "X-School"

const (
	ctxTenantKey = "tenant"
	ctxDBKey     = "tenantDB"
)

// tenantMiddleware resolves the request's tenant marker to its data-source
// handle and stashes both on the context for handlers downstream.
func tenantMiddleware(resolver *school.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			marker := ctx.Request().Header.Get(TenantHeader)
			if marker == "" {
				if cookie, err := ctx.Cookie(TenantHeader); err == nil {
					marker = cookie.Value
				}
			}

			db, err := resolver.Resolve(marker)
			if err != nil {
				return errors.Wrap(err, "resolving tenant")
			}
			ctx.Set(ctxTenantKey, resolver.Canonical(marker))
			ctx.Set(ctxDBKey, db)
			return next(ctx)
		}
	}
}

func contextTenant(ctx echo.Context) string {
	code, _ := ctx.Get(ctxTenantKey).(string)
	return code
}

// contextDB returns the request's tenant data-source handle. A handler routed
// outside the tenant group has no handle to work with; that is wiring broken
// beyond this request, so it signals shutdown.
func contextDB(ctx echo.Context) (core.DB, error) {
	db, ok := ctx.Get(ctxDBKey).(core.DB)
	if !ok {
		return nil, core.NewShutdownError("tenant data source not found in echo.Context")
	}
	return db, nil
}
