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

	"github.com/stretchr/testify/assert"

	. "github.com/huyld1504/SchoolMedicalCareSystem-sub005/apps/api/echo"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
	appfs "github.com/huyld1504/SchoolMedicalCareSystem-sub005/fs"
	emailsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/email"
	logsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/logger"
	metricsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/metrics"
	inmemdb "github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/database/inmem"
	testutil "github.com/huyld1504/SchoolMedicalCareSystem-sub005/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errPermission   = httpErr{Error: "permission denied"}
)

// testApp is a server backed by in-memory storage, with a school of two admins,
// a nurse, two parents and three students.
type testApp struct {
	*Server
	conf    *core.Config
	usrRepo user.Repository
	stdRepo student.Repository
	vaccSvc *vaccination.Service

	admin, admin2, nurse, parent1, parent2 user.User
	s1, s2, s3                             student.Student // parent1: s1, s2; parent2: s3
}

func setup(t *testing.T) *testApp {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	stdRepo := inmemdb.NewStudentRepository(db)

	// set up services
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, logger, false)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	metrics := metricsvc.New()
	usrSvc := user.NewService(usrRepo)
	stdSvc := student.NewService(stdRepo, usrSvc)
	vaccSvc := vaccination.NewService(
		inmemdb.NewCampaignRepository(db),
		inmemdb.NewParticipationRepository(db),
		stdSvc,
		vaccination.WithNotifier(vaccination.NewEmailNotifier(mailSvc, stdSvc, usrSvc, logger)),
		vaccination.WithMetrics(metrics),
		vaccination.WithLogger(logger),
		vaccination.WithPagination(conf.Pagination),
	)
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	app := &testApp{
		conf:    conf,
		usrRepo: usrRepo,
		stdRepo: stdRepo,
		vaccSvc: vaccSvc,
	}
	app.Server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		StudentSvc:     stdSvc,
		VaccinationSvc: vaccSvc,
		Validate:       validate,
		Translator:     translator,
		Metrics:        metrics.Handler(),
		DisableReqLogs: true,
	})
	t.Cleanup(func() { emailsvc.TakeSentMessages() })

	app.admin = testutil.CreateUser(t, usrRepo, "Alice Admin", "alice", "alice@school.cd", "Pwd.Alice.1", []string{user.RoleAdmin}, true)
	app.admin2 = testutil.CreateUser(t, usrRepo, "Owen Owner", "owen", "owen@school.cd", "", []string{user.RoleAdminOwner}, true)
	app.nurse = testutil.CreateUser(t, usrRepo, "Nina Nurse", "nina", "nina@school.cd", "", []string{user.RoleNurse}, true)
	app.parent1 = testutil.CreateUser(t, usrRepo, "Paul Parent", "paul", "paul@home.cd", "", []string{user.RoleParent}, true)
	app.parent2 = testutil.CreateUser(t, usrRepo, "Petra Parent", "petra", "petra@home.cd", "", []string{user.RoleParent}, true)

	app.s1 = testutil.CreateStudent(t, stdRepo, "s001", "Sam One", "P1", app.parent1.ID)
	app.s2 = testutil.CreateStudent(t, stdRepo, "s002", "Sue Two", "P1", app.parent1.ID)
	app.s3 = testutil.CreateStudent(t, stdRepo, "s003", "Tim Three", "P2", app.parent2.ID)
	return app
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	token, err := GenerateToken(app.conf, usr)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do serves `tt` and decodes the response into `into` when the request succeeded.
func (app *testApp) do(t *testing.T, tt httpTest, into ...interface{}) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	if len(into) > 0 && rec.Code < http.StatusBadRequest {
		if err := json.Unmarshal(rec.Body.Bytes(), into[0]); err != nil {
			t.Fatalf("do() failed to decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(t, tt))
		})
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
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
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
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, "body: %s", rec.Body.String())
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
