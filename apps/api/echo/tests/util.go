package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/bitacora/apps/api/echo"
	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
	"github.com/trezcool/bitacora/services/email"
	"github.com/trezcool/bitacora/storage/database/inmem"
	"github.com/trezcool/bitacora/tests"
)

// now is the frozen clock of every API test.
var now = time.Date(2024, 3, 8, 12, 0, 5, 0, time.UTC)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type testApp struct {
	conf  *core.Config
	srv   *Server
	svc   *compliance.Service
	db    *inmemdb.DB
	repo  compliance.Repository
	token string
}

// setup returns a server over a fresh in-memory store, with a frozen clock and sequential ids ("id-1", ...).
func setup(t *testing.T, configure ...func(conf *core.Config)) testApp {
	conf := testutil.NewConfig()
	for _, fn := range configure {
		fn(conf)
	}

	origNow, origID := compliance.NowFunc, compliance.NewID
	seq := 0
	compliance.NowFunc = func() time.Time { return now }
	compliance.NewID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	t.Cleanup(func() {
		compliance.NowFunc, compliance.NewID = origNow, origID
	})
	emailsvc.ResetSentMessages()

	// the error handler translates with the service's validator
	db := inmemdb.Open()
	repo := inmemdb.NewComplianceRepository(db)
	validate, translator := testutil.NewValidator(conf)
	logger := testutil.NewLogger()
	svc := compliance.NewService(repo, validate, logger, conf)
	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Service:    svc,
		Mailer:     emailsvc.NewConsoleServiceMock(conf),
	})

	return testApp{
		conf:  conf,
		srv:   srv,
		svc:   svc,
		db:    db,
		repo:  repo,
		token: getToken(t, conf, testutil.Owner),
	}
}

func (app testApp) run(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.srv.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, owner string) string {
	token, err := GenerateToken(NewClaims(conf, core.Owner{ID: owner}), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
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
	return reflect.DeepEqual(j1, j2), nil
}

// checkCodeAndData compares the JSON body to tt.wantData; a nil wantData expects an empty body.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		assert.Empty(t, rec.Body.String())
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
