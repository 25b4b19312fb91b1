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
	"time"

	. "github.com/nae-imUam/coaching-app-api/apps/api/echo"
	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/attendance"
	"github.com/nae-imUam/coaching-app-api/core/batch"
	"github.com/nae-imUam/coaching-app-api/core/dashboard"
	"github.com/nae-imUam/coaching-app-api/core/exam"
	"github.com/nae-imUam/coaching-app-api/core/fee"
	"github.com/nae-imUam/coaching-app-api/core/owner"
	"github.com/nae-imUam/coaching-app-api/core/student"
	"github.com/nae-imUam/coaching-app-api/services/cache"
	"github.com/nae-imUam/coaching-app-api/services/email"
	"github.com/nae-imUam/coaching-app-api/services/logger"
	"github.com/nae-imUam/coaching-app-api/services/media"
	"github.com/nae-imUam/coaching-app-api/storage/database/dummy"
	"github.com/nae-imUam/coaching-app-api/tests"
)

const rateLimitAttempts = 3

type testApp struct {
	Server
	repos  dummydb.Repositories
	outbox *emailsvc.Outbox
}

// setup returns a server backed by a fresh in-memory DB & cache.
func setup(t *testing.T) testApp {
	conf := *core.Conf
	conf.Debug = true
	conf.TestMode = true
	conf.Server.DisableReqLogs = true
	conf.Media.Root = t.TempDir()
	conf.RateLimit = core.RateLimitConfig{Attempts: rateLimitAttempts, Window: time.Minute}

	repos := testutil.OpenRepos(t)
	validate, translator := testutil.NewValidator()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), &conf)
	outbox := emailsvc.NewOutbox(logger)

	srv := NewServer(
		ServerDeps{
			Conf:          &conf,
			Logger:        logger,
			Cache:         cachesvc.NewMemoryCache(),
			Media:         mediasvc.NewFileStore(conf.Media),
			OwnerSvc:      owner.NewService(repos.Owners, outbox, validate),
			BatchSvc:      batch.NewService(repos.Batches, validate),
			StudentSvc:    student.NewService(repos.Students, repos.Batches, validate),
			Ledger:        fee.NewLedger(repos.Payments, repos.Students, repos.Batches, validate),
			AttendanceSvc: attendance.NewService(repos.Attendance, repos.Students, repos.Batches, validate),
			ExamSvc:       exam.NewService(repos.Exams, repos.Students, repos.Batches, validate),
			DashboardSvc:  dashboard.NewService(repos.Dashboard),
			Validate:      validate,
			Translator:    translator,
		},
	)
	return testApp{Server: srv, repos: repos, outbox: outbox}
}

// do serves a JSON request and returns the recorder.
func (app testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func failure(msg string, errs ...map[string]string) httpErr {
	e := httpErr{Message: msg}
	if len(errs) > 0 {
		e.Errors = errs[0]
	}
	return e
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
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

func getTokens(t *testing.T, o owner.Owner) TokenPair {
	tokens, err := GenerateTokens(o)
	if err != nil {
		t.Fatalf("getTokens(): %v", err)
	}
	return tokens
}

func getToken(t *testing.T, o owner.Owner) string {
	return getTokens(t, o).Access
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

// decode unmarshalls a JSON object response.
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var data map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode(%s): %v", rec.Body.String(), err)
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

func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
