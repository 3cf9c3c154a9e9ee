package vaccination_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
	inmemdb "github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/database/inmem"
	testutil "github.com/huyld1504/SchoolMedicalCareSystem-sub005/tests"
)

// fixture is a school with two admins, a nurse, two parents and three students.
type fixture struct {
	db       *inmemdb.DB
	svc      *vaccination.Service
	users    *user.Service
	students *student.Service
	stdRepo  student.Repository
	metrics  *metricsSpy
	notifier *notifierSpy

	admin, admin2, nurse, parent1, parent2, nobody user.User
	s1, s2, s3                                     student.Student // parent1: s1, s2; parent2: s3
}

func newFixture(t *testing.T) *fixture {
	fakeClock(t)

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	stdRepo := inmemdb.NewStudentRepository(db)

	f := &fixture{
		db:       db,
		users:    user.NewService(usrRepo),
		stdRepo:  stdRepo,
		metrics:  new(metricsSpy),
		notifier: new(notifierSpy),
	}
	f.students = student.NewService(stdRepo, f.users)
	f.svc = vaccination.NewService(
		inmemdb.NewCampaignRepository(db),
		inmemdb.NewParticipationRepository(db),
		f.students,
		vaccination.WithMetrics(f.metrics),
		vaccination.WithNotifier(f.notifier),
		vaccination.WithPagination(core.PaginationConfig{DefaultLimit: 10, MaxLimit: 50}),
	)

	f.admin = testutil.CreateUser(t, usrRepo, "Alice Admin", "alice", "alice@school.cd", "", []string{user.RoleAdmin}, true)
	f.admin2 = testutil.CreateUser(t, usrRepo, "Owen Owner", "owen", "owen@school.cd", "", []string{user.RoleAdminOwner}, true)
	f.nurse = testutil.CreateUser(t, usrRepo, "Nina Nurse", "nina", "nina@school.cd", "", []string{user.RoleNurse}, true)
	f.parent1 = testutil.CreateUser(t, usrRepo, "Paul Parent", "paul", "paul@home.cd", "", []string{user.RoleParent}, true)
	f.parent2 = testutil.CreateUser(t, usrRepo, "Petra Parent", "petra", "petra@home.cd", "", []string{user.RoleParent}, true)
	f.nobody = testutil.CreateUser(t, usrRepo, "No Body", "nobody", "nobody@home.cd", "", nil, true)

	f.s1 = testutil.CreateStudent(t, stdRepo, "s001", "Sam One", "P1", f.parent1.ID)
	f.s2 = testutil.CreateStudent(t, stdRepo, "s002", "Sue Two", "P1", f.parent1.ID)
	f.s3 = testutil.CreateStudent(t, stdRepo, "s003", "Tim Three", "P2", f.parent2.ID)
	return f
}

// fakeClock makes vaccination.NowFunc tick one second per call.
func fakeClock(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)
	vaccination.NowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	t.Cleanup(func() { vaccination.NowFunc = time.Now })
}

func (f *fixture) createCampaign(t *testing.T, name string, by user.User) vaccination.Campaign {
	c, err := f.svc.CreateCampaign(context.Background(), vaccination.NewCampaign{
		VaccineName:   name,
		VaccineType:   "MMR",
		ScheduledDate: "2026-10-01",
	}, by)
	require.NoError(t, err)
	return c
}

func (f *fixture) setStatus(t *testing.T, c vaccination.Campaign, status string) vaccination.Campaign {
	c, err := f.svc.UpdateCampaign(context.Background(), c.ID, vaccination.UpdateCampaign{Status: &status}, f.admin)
	require.NoError(t, err)
	return c
}

func (f *fixture) enroll(t *testing.T, c vaccination.Campaign, students ...student.Student) map[string]vaccination.Participation {
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	parts, err := f.svc.AddStudentsToCampaign(context.Background(), c.ID, ids, f.admin)
	require.NoError(t, err)

	byStudent := make(map[string]vaccination.Participation, len(parts))
	for _, p := range parts {
		byStudent[p.StudentID] = p
	}
	return byStudent
}

func (f *fixture) policy(t *testing.T, usr user.User) *vaccination.Policy {
	p, err := f.svc.PolicyFor(context.Background(), usr)
	require.NoError(t, err)
	return p
}

type metricsSpy struct {
	mu         sync.Mutex
	created    int
	enrolled   int
	consents   map[string]int
	outcomes   map[string]int
	rejections map[string]int
}

func (m *metricsSpy) CampaignCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *metricsSpy) StudentsEnrolled(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrolled += count
}

func (m *metricsSpy) ConsentDecided(consent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consents == nil {
		m.consents = make(map[string]int)
	}
	m.consents[consent]++
}

func (m *metricsSpy) VaccinationRecorded(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]int)
	}
	m.outcomes[status]++
}

func (m *metricsSpy) Rejected(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejections == nil {
		m.rejections = make(map[string]int)
	}
	m.rejections[op+":"+core.ErrorKind(err)]++
}

type notifierSpy struct {
	mu        sync.Mutex
	requested []vaccination.Participation
	recorded  []vaccination.Participation
}

func (n *notifierSpy) ConsentRequested(_ context.Context, _ vaccination.Campaign, parts []vaccination.Participation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requested = append(n.requested, parts...)
}

func (n *notifierSpy) VaccinationRecorded(_ context.Context, _ vaccination.Campaign, part vaccination.Participation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recorded = append(n.recorded, part)
}

type loggerSpy struct {
	mu     sync.Mutex
	errors []string
}

func (l *loggerSpy) Debug(string, ...interface{}) {}
func (l *loggerSpy) Info(string, ...interface{})  {}
func (l *loggerSpy) Warn(string, ...interface{})  {}
func (l *loggerSpy) Fatal(string, ...interface{}) {}

func (l *loggerSpy) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprint(append([]interface{}{msg + ": "}, args...)...))
}

// failingCampaigns fails every GetCampaign with err.
type failingCampaigns struct {
	vaccination.CampaignRepository
	err error
}

func (r failingCampaigns) GetCampaign(context.Context, string) (vaccination.Campaign, error) {
	return vaccination.Campaign{}, r.err
}
