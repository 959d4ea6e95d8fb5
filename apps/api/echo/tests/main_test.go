package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/roster"
	"github.com/trezcool/shule/core/school"
	dummyaccounts "github.com/trezcool/shule/services/accounts/dummy"
	logsvc "github.com/trezcool/shule/services/logger"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

const (
	defaultTenant = "forqan"
	otherTenant   = "noor"
)

// testApp wires the API server over in-memory repositories; every test gets a
// fresh one.
type testApp struct {
	app *echoapi.Server

	rosterRepo roster.Repository
	markRepo   mark.Repository
	reportRepo report.Repository
	accounts   *dummyaccounts.Service

	rosterSvc *roster.Service
	markSvc   *mark.Service
	reportSvc *report.Service
}

// stubDB satisfies core.DB so the tenant resolver has a handle to stash; the
// in-memory repositories never touch it.
type stubDB struct{ core.DB }

func setup(t *testing.T) *testApp {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := &core.Config{TestMode: true}
	conf.Tenants = core.TenantsConfig{
		Default: defaultTenant,
		DSNs: map[string]string{
			defaultTenant: "postgres://localhost/" + defaultTenant,
			otherTenant:   "postgres://localhost/" + otherTenant,
		},
	}

	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))
	resolver, err := school.NewResolver(
		conf.Tenants,
		func(string) (core.DB, error) { return stubDB{}, nil },
		logger,
	)
	require.NoError(t, err)

	a := &testApp{
		rosterRepo: dummydb.NewRosterRepository(db),
		markRepo:   dummydb.NewMarkRepository(db),
		reportRepo: dummydb.NewReportRepository(db),
		accounts:   dummyaccounts.NewService(),
	}
	a.markSvc = mark.NewService(a.markRepo)
	a.rosterSvc = roster.NewService(a.rosterRepo, a.accounts, a.markSvc, logger)
	a.reportSvc = report.NewService(a.reportRepo)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	mark.InitValidators(validate, translator)
	roster.InitValidators(validate, translator)
	report.InitValidators(validate, translator)

	a.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Resolver:   resolver,
		RosterSvc:  a.rosterSvc,
		MarkSvc:    a.markSvc,
		ReportSvc:  a.reportSvc,
		Validate:   validate,
		Translator: translator,
	})
	return a
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	tenant   string
	wantCode int
	wantData []byte
}

func newTenantRequest(method, path, tenant string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(echoapi.TenantHeader, tenant)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newTenantRequest(method, path, defaultTenant, data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func Test_home(t *testing.T) {
	a := setup(t)

	req, rec := newTenantRequest(http.MethodGet, "/", "")
	a.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "Welcome to Shule API!" {
		t.Errorf("failed! body = %q", body)
	}
}

func Test_queryTenants(t *testing.T) {
	a := setup(t)

	req, rec := newTenantRequest(http.MethodGet, "/v1/tenants", "")
	a.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, map[string]interface{}{
			"default": defaultTenant,
			"tenants": []string{defaultTenant, otherTenant},
		}),
	}, rec)
}

func Test_tenantMiddleware(t *testing.T) {
	a := setup(t)

	// no marker at all resolves the default tenant
	req, rec := newTenantRequest(http.MethodGet, "/v1/classes", "")
	a.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)

	// unknown markers fall back rather than fail
	req, rec = newTenantRequest(http.MethodGet, "/v1/classes", "ghost")
	a.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)

	// a cookie is honored when the header is absent
	req, rec = newTenantRequest(http.MethodGet, "/v1/classes", "")
	req.AddCookie(&http.Cookie{Name: echoapi.TenantHeader, Value: otherTenant})
	a.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
}
