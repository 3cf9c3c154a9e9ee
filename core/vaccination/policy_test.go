package vaccination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

func TestPolicy(t *testing.T) {
	f := newFixture(t)

	planned := f.createCampaign(t, "Measles", f.admin)
	f.enroll(t, planned, f.s1)
	completed := f.createCampaign(t, "Tetanus", f.admin)
	completed = f.setStatus(t, completed, vaccination.CampaignCompleted)

	admin, nurse := f.policy(t, f.admin), f.policy(t, f.nurse)
	parent1, parent2 := f.policy(t, f.parent1), f.policy(t, f.parent2)

	t.Run("roles", func(t *testing.T) {
		assert.Equal(t, user.PrimaryAdmin, admin.Role)
		assert.Equal(t, user.PrimaryAdmin, f.policy(t, f.admin2).Role)
		assert.Equal(t, user.PrimaryNurse, nurse.Role)
		assert.Equal(t, user.PrimaryParent, parent1.Role)
		assert.Equal(t, f.parent1.ID, parent1.UserID)
	})

	t.Run("scope", func(t *testing.T) {
		assert.Equal(t, vaccination.Scope{}, admin.Scope())
		assert.Equal(t, []string{vaccination.CampaignPlanned, vaccination.CampaignOngoing}, nurse.Scope().CampaignStatuses)
		assert.False(t, nurse.Scope().Restricted)

		scope := parent1.Scope()
		assert.True(t, scope.Restricted)
		assert.ElementsMatch(t, []string{f.s1.ID, f.s2.ID}, scope.StudentIDs)
		assert.Equal(t, []string{planned.ID}, scope.CampaignIDs)

		scope = parent2.Scope()
		assert.True(t, scope.Restricted)
		assert.Equal(t, []string{f.s3.ID}, scope.StudentIDs)
		assert.Empty(t, scope.CampaignIDs)
	})

	t.Run("campaigns", func(t *testing.T) {
		assert.True(t, admin.AllowsCampaign(completed))
		assert.True(t, nurse.AllowsCampaign(planned))
		assert.False(t, nurse.AllowsCampaign(completed))
		assert.True(t, parent1.AllowsCampaign(planned))
		assert.False(t, parent1.AllowsCampaign(completed))
		assert.False(t, parent2.AllowsCampaign(planned))
	})

	t.Run("participations", func(t *testing.T) {
		part := vaccination.Participation{CampaignID: planned.ID, StudentID: f.s2.ID}
		assert.True(t, admin.AllowsParticipation(part, completed))
		assert.True(t, nurse.AllowsParticipation(part, planned))
		assert.False(t, nurse.AllowsParticipation(part, completed))
		assert.True(t, parent1.AllowsParticipation(part, planned))
		assert.False(t, parent2.AllowsParticipation(part, planned))
	})

	t.Run("students", func(t *testing.T) {
		assert.True(t, admin.AllowsStudent(f.s3))
		assert.True(t, nurse.AllowsStudent(f.s3))
		assert.True(t, parent1.AllowsStudent(f.s2))
		assert.False(t, parent1.AllowsStudent(f.s3))

		filter := student.QueryFilter{GuardianID: f.parent2.ID}
		nurse.ScopeStudents(&filter)
		assert.Empty(t, filter.GuardianID)
		parent1.ScopeStudents(&filter)
		assert.Equal(t, f.parent1.ID, filter.GuardianID)
	})
}
