package school_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// countingOpener records which DSNs were opened and how often.
type countingOpener struct {
	mu    sync.Mutex
	opens map[string]int
	fail  error
}

func (o *countingOpener) open(dsn string) (core.DB, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return nil, o.fail
	}
	if o.opens == nil {
		o.opens = make(map[string]int)
	}
	o.opens[dsn]++
	return fakeDB{dsn: dsn}, nil
}

// fakeDB is a distinguishable core.DB stand-in; nothing queries it.
type fakeDB struct {
	core.DB
	dsn string
}

type warnRecorder struct {
	warns []string
}

func (r *warnRecorder) Debug(string, ...interface{}) {}
func (r *warnRecorder) Info(string, ...interface{})  {}
func (r *warnRecorder) Warn(msg string, _ ...interface{}) {
	r.warns = append(r.warns, msg)
}
func (r *warnRecorder) Error(string, ...interface{}) {}
func (r *warnRecorder) Fatal(string, ...interface{}) {}

var tenantsConf = core.TenantsConfig{
	Default: "forqan",
	DSNs: map[string]string{
		"forqan": "postgres://localhost/forqan",
		"noor":   "postgres://localhost/noor",
	},
}

func TestNewResolver(t *testing.T) {
	opener := &countingOpener{}
	logger := &warnRecorder{}

	_, err := school.NewResolver(core.TenantsConfig{}, opener.open, logger)
	assert.Equal(t, school.ErrNoTenants, err)

	_, err = school.NewResolver(core.TenantsConfig{
		Default: "missing",
		DSNs:    map[string]string{"forqan": "postgres://localhost/forqan"},
	}, opener.open, logger)
	assert.EqualError(t, err, `default tenant "missing" has no data source`)

	r, err := school.NewResolver(tenantsConf, opener.open, logger)
	assert.NoError(t, err)
	assert.Equal(t, "forqan", r.Default())
	assert.Equal(t, []string{"forqan", "noor"}, r.Codes())
}

func TestResolver_Resolve(t *testing.T) {
	opener := &countingOpener{}
	logger := &warnRecorder{}
	r, err := school.NewResolver(tenantsConf, opener.open, logger)
	require.NoError(t, err)

	// explicit code
	db, err := r.Resolve("noor")
	assert.NoError(t, err)
	assert.Equal(t, fakeDB{dsn: "postgres://localhost/noor"}, db)

	// markers are trimmed and case-folded
	db, err = r.Resolve("  NOOR ")
	assert.NoError(t, err)
	assert.Equal(t, fakeDB{dsn: "postgres://localhost/noor"}, db)

	// missing marker means the default tenant
	db, err = r.Resolve("")
	assert.NoError(t, err)
	assert.Equal(t, fakeDB{dsn: "postgres://localhost/forqan"}, db)
	assert.Empty(t, logger.warns)

	// unknown marker falls back to the default, with a warning
	db, err = r.Resolve("ghost")
	assert.NoError(t, err)
	assert.Equal(t, fakeDB{dsn: "postgres://localhost/forqan"}, db)
	if assert.Len(t, logger.warns, 1) {
		assert.Contains(t, logger.warns[0], `unknown tenant "ghost"`)
	}

	// one pool per tenant, reused across calls
	assert.Equal(t, map[string]int{
		"postgres://localhost/noor":   1,
		"postgres://localhost/forqan": 1,
	}, opener.opens)
}

func TestResolver_Resolve_openError(t *testing.T) {
	opener := &countingOpener{fail: fmt.Errorf("connection refused")}
	r, err := school.NewResolver(tenantsConf, opener.open, &warnRecorder{})
	require.NoError(t, err)

	_, err = r.Resolve("noor")
	assert.ErrorContains(t, err, `opening data source for tenant "noor"`)

	// a failed open is not cached; the next call retries
	opener.fail = nil
	db, err := r.Resolve("noor")
	assert.NoError(t, err)
	assert.Equal(t, fakeDB{dsn: "postgres://localhost/noor"}, db)
}

func TestResolver_Canonical(t *testing.T) {
	r, err := school.NewResolver(tenantsConf, (&countingOpener{}).open, &warnRecorder{})
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"noor", "noor"},
		{" Noor ", "noor"},
		{"", "forqan"},
		{"ghost", "forqan"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Canonical(tt.in), "in=%q", tt.in)
	}
}
