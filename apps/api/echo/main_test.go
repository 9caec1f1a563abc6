package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/session"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	inmemstore "github.com/trezcool/academia/storage/session/inmem"
	"github.com/trezcool/academia/testutil"
)

const (
	strongPwd    = "Str0ng!Pass#"
	badCaptcha   = "bad-captcha"
	validCaptcha = "ok"
)

// captchaStub rejects badCaptcha and accepts any other token.
type captchaStub struct{}

func (*captchaStub) Verify(_ context.Context, token, _ string) error {
	if token == badCaptcha {
		return errors.Wrap(core.ErrCaptchaFailed, "stub")
	}
	return nil
}

type fixture struct {
	srv      *Server
	db       *inmemdb.DB
	accRepo  account.Repository
	acadRepo academic.Repository
	mailSvc  *emailsvc.ConsoleServiceMock
	metrics  *Metrics
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := testutil.NewConfig()
	testutil.ParseTemplates(t, conf)
	validate, translator := testutil.NewValidator(t)

	db := inmemdb.Open()
	accRepo := inmemdb.NewAccountRepository(db)
	acadRepo := inmemdb.NewAcademicRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	accSvc := account.NewService(accRepo, acadRepo, mailSvc, conf)
	metrics := NewMetrics()

	srv := NewServer(
		conf,
		logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		&Deps{
			Validate:    validate,
			Translator:  translator,
			AccountSvc:  accSvc,
			Resolver:    account.NewResolver(accRepo),
			AcademicSvc: academic.NewService(acadRepo, accSvc),
			Sessions:    inmemstore.NewStore(),
			Captcha:     &captchaStub{},
			Metrics:     metrics,
		},
	)
	return &fixture{
		srv:      srv,
		db:       db,
		accRepo:  accRepo,
		acadRepo: acadRepo,
		mailSvc:  mailSvc,
		metrics:  metrics,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookie   *http.Cookie
	wantCode int
	wantData []byte
	wantLoc  string
}

func newRequest(method, path string, cookie *http.Cookie, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newFormRequest(path string, form url.Values) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	return req, rec
}

func (f *fixture) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newRequest(tt.method, tt.path, tt.cookie, tt.body)
	f.srv.ServeHTTP(rec, req)
	return rec
}

// login logs in through the login endpoint and returns the session cookie.
func (f *fixture) login(t *testing.T, email, pwd string) *http.Cookie {
	t.Helper()

	body := marshallObj(t, LoginRequest{Email: email, Password: pwd, CaptchaToken: validCaptcha})
	req, rec := newRequest(http.MethodPost, "/login", nil, body)
	f.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login(%s) failed: code = %d; body %s", email, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == f.srv.conf.Server.SessionCookieName {
			return c
		}
	}
	t.Fatalf("login(%s) failed: no session cookie", email)
	return nil
}

// createAndLogin creates an Account with strongPwd and logs it in.
func (f *fixture) createAndLogin(t *testing.T, email string, role account.Role) (account.Account, account.Profile, *http.Cookie) {
	t.Helper()
	acc, prof := testutil.CreateAccount(t, f.accRepo, email, strongPwd, role)
	return acc, prof, f.login(t, email, strongPwd)
}

// sessionCookie saves a session for the given account & role, bypassing the login endpoint.
func (f *fixture) sessionCookie(t *testing.T, accountID int, role account.Role) *http.Cookie {
	t.Helper()

	sess := session.New(account.Account{ID: accountID, Role: role}, time.Hour)
	if err := f.srv.deps.Sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("sessionCookie() failed: %v", err)
	}
	token, err := f.srv.tokens.sign(sess)
	if err != nil {
		t.Fatalf("sessionCookie() failed: %v", err)
	}
	return &http.Cookie{Name: f.srv.conf.Server.SessionCookieName, Value: token}
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshall(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
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
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantLoc != "" {
		if loc := rec.Header().Get("Location"); loc != tt.wantLoc {
			t.Errorf("failed! location = %q; wantLoc %q", loc, tt.wantLoc)
		}
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v; body %s", err, rec.Body.String())
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
