package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/sanaa/apps/api/echo"
	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/enrollment"
	"github.com/trezcool/sanaa/core/media"
	"github.com/trezcool/sanaa/core/user"
	"github.com/trezcool/sanaa/services/blob"
	emailsvc "github.com/trezcool/sanaa/services/email"
	"github.com/trezcool/sanaa/services/ratelimit"
	dummydb "github.com/trezcool/sanaa/storage/database/dummy"
	"github.com/trezcool/sanaa/testutil"
)

const uploadLimit = 2

var (
	ctxBg = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testApp struct {
	*echoapi.Server
	conf    *core.Config
	usrRepo user.Repository
	crsRepo course.Repository
	enrRepo enrollment.Repository
	enrSvc  enrollment.Service
	mailSvc *emailsvc.ConsoleServiceMock
	blob    *blob.LocalStorage
}

func setup(t *testing.T) testApp {
	t.Helper()
	conf := testutil.Config(t)
	logger := testutil.Logger(conf)
	validate, translator := testutil.Validator()
	core.ParseEmailTemplates(logger, true /* strict */)

	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)
	crsRepo := dummydb.NewCourseRepository(db)
	enrRepo := dummydb.NewEnrollmentRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo)
	enrSvc := enrollment.NewService(enrRepo, crsRepo, usrSvc, mailSvc, logger)
	crsSvc := course.NewService(crsRepo, enrSvc)
	store, err := blob.NewLocalStorage(conf)
	require.NoError(t, err)
	mediaSvc := media.NewService(store, ratelimit.NewMemoryStoreWith(uploadLimit, time.Hour, time.Now))

	// set up server
	srv := echoapi.NewServer(echoapi.Deps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		UserSvc:    usrSvc,
		CourseSvc:  crsSvc,
		EnrollSvc:  enrSvc,
		MediaSvc:   mediaSvc,
	})

	return testApp{
		Server:  srv,
		conf:    conf,
		usrRepo: usrRepo,
		crsRepo: crsRepo,
		enrRepo: enrRepo,
		enrSvc:  enrSvc,
		mailSvc: mailSvc,
		blob:    store,
	}
}

func (app testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(app.conf, echoapi.GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}
	return token
}

// do serves the request and returns the recorded response.
func (app testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func (app testApp) enroll(t *testing.T, usr user.User, courseID string) enrollment.Enrollment {
	t.Helper()
	enr, err := app.enrSvc.Enroll(ctxBg, usr.ID, courseID)
	require.NoError(t, err)
	return enr
}

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

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
	}
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
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
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

func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
