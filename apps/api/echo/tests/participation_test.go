package tests

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
	emailsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/email"
)

func Test_participationApi_workflow(t *testing.T) {
	app := setup(t)
	c := app.createCampaign(t, "Measles", app.admin)
	parts := app.enroll(t, c, app.s1.ID, app.s2.ID)
	p1, p2 := parts[app.s1.ID], parts[app.s2.ID]
	emailsvc.TakeSentMessages()

	parentToken, nurseToken := app.token(t, app.parent1), app.token(t, app.nurse)
	consent := func(id string) string { return "/v1/participations/" + id + "/consent" }
	record := func(id string) string { return "/v1/participations/" + id + "/vaccination" }

	app.run(t, []httpTest{
		{
			name: "denial without a note", method: http.MethodPut, path: consent(p1.ID), token: parentToken,
			body: []byte(`{"consent": "denied"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"note": "a denial must carry a reason"}),
		},
		{
			name: "unknown consent", method: http.MethodPut, path: consent(p1.ID), token: parentToken,
			body: []byte(`{"consent": "maybe"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"consent": "invalid value"}),
		},
		{
			name: "not a guardian", method: http.MethodPut, path: consent(p1.ID), token: app.token(t, app.parent2),
			body: []byte(`{"consent": "approved"}`), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "only a guardian of the student may decide on consent"}),
		},
		{
			name: "unknown participation", method: http.MethodPut, path: consent("unknown"), token: parentToken,
			body: []byte(`{"consent": "approved"}`), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "participation not found"}),
		},
		{name: "denial", method: http.MethodPut, path: consent(p1.ID), token: parentToken, body: []byte(`{"consent": "Denied", "note": "allergy"}`)},
		{
			name: "vaccinating without consent", method: http.MethodPut, path: record(p1.ID), token: nurseToken,
			body: []byte(`{"status": "completed"}`), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "parent consent has not been approved"}),
		},
		{name: "approval", method: http.MethodPut, path: consent(p2.ID), token: parentToken, body: []byte(`{"consent": "approved"}`)},
		{
			name: "vaccinating as a parent", method: http.MethodPut, path: record(p2.ID), token: parentToken,
			body: []byte(`{"status": "completed"}`), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "only nurses may record vaccinations"}),
		},
		{
			name: "unknown outcome", method: http.MethodPut, path: record(p2.ID), token: nurseToken,
			body: []byte(`{"status": "pending"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "invalid value"}),
		},
		{name: "missed", method: http.MethodPut, path: record(p2.ID), token: nurseToken, body: []byte(`{"status": "missed", "note": "absent"}`)},
	})

	var done vaccination.Participation
	rec := app.do(t, httpTest{method: http.MethodPut, path: record(p2.ID), token: nurseToken, body: []byte(`{"status": "completed"}`)}, &done)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, vaccination.VaccinationCompleted, done.VaccinationStatus)
	assert.Equal(t, app.nurse.ID, done.NurseID)
	require.NotNil(t, done.VaccinationDate)

	app.run(t, []httpTest{
		{
			name: "completed is final", method: http.MethodPut, path: record(p2.ID), token: nurseToken,
			body: []byte(`{"status": "cancelled"}`), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "vaccination has already been completed"}),
		},
		{
			name: "consent is locked once vaccinated", method: http.MethodPut, path: consent(p2.ID), token: parentToken,
			body: []byte(`{"consent": "denied", "note": "changed my mind"}`), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "consent cannot change once the vaccination is completed"}),
		},
	})

	// guardians were told about both outcomes
	sent := emailsvc.TakeSentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "Vaccination missed: Measles", sent[0].Subject)
	assert.Equal(t, "Vaccination completed: Measles", sent[1].Subject)

	// the parent sees the final state
	var got vaccination.Participation
	rec = app.do(t, httpTest{path: "/v1/participations/" + p1.ID, token: parentToken}, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vaccination.ConsentDenied, got.ParentConsent)
	assert.Equal(t, "allergy", got.ConsentNote)
	assert.Equal(t, vaccination.VaccinationPending, got.VaccinationStatus)
	require.NotNil(t, got.Campaign)
	assert.Equal(t, c.ID, got.Campaign.ID)

	// metrics
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	app.ServeHTTP(mrec, req)
	require.Equal(t, http.StatusOK, mrec.Code)
	body, err := io.ReadAll(mrec.Body)
	require.NoError(t, err)
	metrics := string(body)
	assert.Contains(t, metrics, "schoolmed_campaigns_created_total 1")
	assert.Contains(t, metrics, "schoolmed_students_enrolled_total 2")
	assert.Contains(t, metrics, `schoolmed_consent_decisions_total{consent="denied"} 1`)
	assert.Contains(t, metrics, `schoolmed_vaccination_outcomes_total{status="completed"} 1`)
	assert.Contains(t, metrics, `schoolmed_workflow_rejections_total{kind="precondition",operation="record_vaccination"} 2`)
	assert.Contains(t, metrics, `schoolmed_workflow_rejections_total{kind="authorization",operation="set_consent"} 1`)
}

func Test_participationApi_query(t *testing.T) {
	app := setup(t)

	measles := app.createCampaign(t, "Measles", app.admin)
	mParts := app.enroll(t, measles, app.s1.ID, app.s2.ID, app.s3.ID)
	tetanus := app.createCampaign(t, "Tetanus", app.admin)
	tParts := app.enroll(t, tetanus, app.s1.ID)
	app.setStatus(t, tetanus, vaccination.CampaignCompleted)

	ids := func(t *testing.T, token, query string) []string {
		var page vaccination.ParticipationPage
		rec := app.do(t, httpTest{path: "/v1/participations?ordering=student_name,vaccine&" + query, token: token}, &page)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, int64(len(page.Records)), page.Total)
		var res []string
		for _, p := range page.Records {
			res = append(res, p.ID)
		}
		return res
	}

	adminToken, nurseToken := app.token(t, app.admin), app.token(t, app.nurse)
	parent1Token, parent2Token := app.token(t, app.parent1), app.token(t, app.parent2)
	s1m, s1t, s2m, s3m := mParts[app.s1.ID].ID, tParts[app.s1.ID].ID, mParts[app.s2.ID].ID, mParts[app.s3.ID].ID

	assert.ElementsMatch(t, []string{s1m, s1t, s2m, s3m}, ids(t, adminToken, ""))
	assert.Equal(t, []string{s1m, s2m, s3m}, ids(t, nurseToken, ""))
	assert.ElementsMatch(t, []string{s1m, s1t, s2m}, ids(t, parent1Token, ""))
	assert.Equal(t, []string{s3m}, ids(t, parent2Token, ""))
	assert.Empty(t, ids(t, parent2Token, "student_id="+app.s1.ID))
	assert.Equal(t, []string{s1t}, ids(t, adminToken, "campaign_id="+tetanus.ID))
	assert.Equal(t, []string{s3m}, ids(t, adminToken, "keyword=THREE"))
	assert.Equal(t, []string{s1t}, ids(t, parent1Token, "keyword=tetanus"))

	app.run(t, []httpTest{
		{
			name: "bad consent filter", path: "/v1/participations?consent=maybe", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"consent": "invalid value"}),
		},
		{
			name: "parent retrieving another child", path: "/v1/participations/" + s3m, token: parent1Token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "participation not found"}),
		},
		{
			name: "nurse retrieving from a completed campaign", path: "/v1/participations/" + s1t, token: nurseToken,
			wantCode: http.StatusNotFound,
		},
	})
}
