package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
)

func Test_studentApi_create(t *testing.T) {
	app := setup(t)
	adminToken := app.token(t, app.admin)

	app.run(t, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/students", token: app.token(t, app.nurse),
			body: []byte(`{}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermission),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/students", token: adminToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"code":          "this field is required",
				"name":          "this field is required",
				"date_of_birth": "this field is required",
			}),
		},
		{
			name: "guardian must be a parent", method: http.MethodPost, path: "/v1/students", token: adminToken,
			body:     []byte(`{"code": "s100", "name": "Nat", "date_of_birth": "2016-01-02", "guardian_ids": ["` + app.nurse.ID + `"]}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"guardian_ids": "guardian must be a parent"}),
		},
		{
			name: "code taken", method: http.MethodPost, path: "/v1/students", token: adminToken,
			body:     []byte(`{"code": "S001", "name": "Sam Again", "date_of_birth": "2016-01-02"}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]interface{}{"error": "a student with this code already exists", "keys": []string{"code"}}),
		},
	})

	t.Run("ok", func(t *testing.T) {
		var s student.Student
		rec := app.do(t, httpTest{
			method: http.MethodPost, path: "/v1/students", token: adminToken,
			body: []byte(`{"code": "S100", "name": "Nat New", "class_name": "P3", "date_of_birth": "2016-01-02", "guardian_ids": ["` + app.parent2.ID + `"]}`),
		}, &s)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "s100", s.Code)
		assert.True(t, s.HasGuardian(app.parent2.ID))

		// the new child is visible to its guardian
		app.run(t, []httpTest{
			{name: "guardian", path: "/v1/students", token: app.token(t, app.parent2), wantData: marchallList(t, s, app.s3)},
		})
	})
}

func Test_studentApi_query(t *testing.T) {
	app := setup(t)

	app.run(t, []httpTest{
		{name: "nurse sees everyone", path: "/v1/students", token: app.token(t, app.nurse), wantData: marchallList(t, app.s1, app.s2, app.s3)},
		{name: "parent sees their children", path: "/v1/students", token: app.token(t, app.parent1), wantData: marchallList(t, app.s1, app.s2)},
		{name: "search", path: "/v1/students?search=tim", token: app.token(t, app.admin), wantData: marchallList(t, app.s3)},
		{name: "search outside of scope", path: "/v1/students?search=tim", token: app.token(t, app.parent1), wantData: marchallList(t)},
		{name: "ordering", path: "/v1/students?ordering=-code", token: app.token(t, app.admin), wantData: marchallList(t, app.s3, app.s2, app.s1)},
		{name: "retrieve own child", path: "/v1/students/" + app.s2.ID, token: app.token(t, app.parent1), wantData: marchallObj(t, app.s2)},
		{
			name: "retrieve another child", path: "/v1/students/" + app.s3.ID, token: app.token(t, app.parent1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
		{name: "retrieve as nurse", path: "/v1/students/" + app.s3.ID, token: app.token(t, app.nurse), wantData: marchallObj(t, app.s3)},
	})
}
