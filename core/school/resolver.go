package school

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var ErrNoTenants = errors.New("no tenant data sources configured")

type (
	// Opener opens (or returns a pooled) data-source handle for a DSN.
	// Injected so the resolver stays storage-agnostic and testable.
	Opener func(dsn string) (core.DB, error)

	// Resolver maps an inbound tenant marker to that tenant's data-source
	// handle. Handles are opened lazily, once per tenant, and shared across
	// requests: the *sql.DB underneath is itself the connection pool, so
	// scoped acquisition with guaranteed release is what every query gets.
	Resolver struct {
		conf   core.TenantsConfig
		open   Opener
		logger core.Logger

		mu    sync.Mutex
		pools map[string]core.DB
	}
)

func NewResolver(conf core.TenantsConfig, open Opener, logger core.Logger) (*Resolver, error) {
	if len(conf.DSNs) == 0 {
		return nil, ErrNoTenants
	}
	if _, ok := conf.DSNs[conf.Default]; !ok {
		return nil, errors.Errorf("default tenant %q has no data source", conf.Default)
	}
	return &Resolver{
		conf:   conf,
		open:   open,
		logger: logger,
		pools:  make(map[string]core.DB, len(conf.DSNs)),
	}, nil
}

// Default returns the fallback tenant code.
func (r *Resolver) Default() string { return r.conf.Default }

// Codes returns the configured tenant codes, sorted.
func (r *Resolver) Codes() []string {
	codes := make([]string, 0, len(r.conf.DSNs))
	for code := range r.conf.DSNs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Canonical maps an inbound tenant marker to the configured code it resolves
// to: cleaned and lower-cased, with missing or unknown markers collapsing to
// the default tenant.
func (r *Resolver) Canonical(code string) string {
	code = core.CleanString(code, true /* lower */)
	if code == "" {
		return r.conf.Default
	}
	if _, ok := r.conf.DSNs[code]; !ok {
		return r.conf.Default
	}
	return code
}

// Resolve returns the data-source handle for the given tenant marker.
// A missing or unknown marker falls back to the default tenant; the fallback
// on unknown codes is logged since it can mask a misconfigured client.
func (r *Resolver) Resolve(code string) (core.DB, error) {
	code = core.CleanString(code, true /* lower */)
	if code == "" {
		code = r.conf.Default
	}
	if _, ok := r.conf.DSNs[code]; !ok {
		r.logger.Warn(fmt.Sprintf("unknown tenant %q, falling back to %q", code, r.conf.Default))
		code = r.conf.Default
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if db, ok := r.pools[code]; ok {
		return db, nil
	}
	db, err := r.open(r.conf.DSNs[code])
	if err != nil {
		return nil, errors.Wrapf(err, "opening data source for tenant %q", code)
	}
	r.pools[code] = db
	return db, nil
}
