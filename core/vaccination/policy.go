package vaccination

import (
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
)

var (
	nurseCampaignStatuses = []string{CampaignPlanned, CampaignOngoing}

	errNoRole = core.NewAuthorizationError("caller has no role")
)

// Policy decides what a caller may read. It is built once per caller by Service.PolicyFor
// and applied to every read path.
type Policy struct {
	UserID string
	Role   string // one of user.PrimaryAdmin, user.PrimaryNurse or user.PrimaryParent

	// parents only
	studentIDs  map[string]bool
	campaignIDs map[string]bool
}

func newPolicy(caller user.User, studentIDs, campaignIDs []string) (*Policy, error) {
	role := caller.PrimaryRole()
	if role == "" {
		return nil, errNoRole
	}
	p := &Policy{UserID: caller.ID, Role: role}
	if role == user.PrimaryParent {
		p.studentIDs = toSet(studentIDs)
		p.campaignIDs = toSet(campaignIDs)
	}
	return p, nil
}

// Scope resolves the policy to the restrictions storage applies on list queries.
func (p *Policy) Scope() Scope {
	switch p.Role {
	case user.PrimaryNurse:
		return Scope{CampaignStatuses: nurseCampaignStatuses}
	case user.PrimaryParent:
		return Scope{
			Restricted:  true,
			StudentIDs:  fromSet(p.studentIDs),
			CampaignIDs: fromSet(p.campaignIDs),
		}
	}
	return Scope{}
}

func (p *Policy) AllowsCampaign(c Campaign) bool {
	switch p.Role {
	case user.PrimaryAdmin:
		return true
	case user.PrimaryNurse:
		return isOneOf(c.Status, nurseCampaignStatuses)
	case user.PrimaryParent:
		return p.campaignIDs[c.ID]
	}
	return false
}

// AllowsParticipation checks `part` along with the campaign it belongs to.
func (p *Policy) AllowsParticipation(part Participation, c Campaign) bool {
	switch p.Role {
	case user.PrimaryAdmin:
		return true
	case user.PrimaryNurse:
		return isOneOf(c.Status, nurseCampaignStatuses)
	case user.PrimaryParent:
		return p.studentIDs[part.StudentID]
	}
	return false
}

func (p *Policy) AllowsStudent(s student.Student) bool {
	if p.Role == user.PrimaryParent {
		return s.HasGuardian(p.UserID)
	}
	return true
}

// ScopeStudents restricts a student query to what the caller may read.
func (p *Policy) ScopeStudents(filter *student.QueryFilter) {
	if p.Role == user.PrimaryParent {
		filter.GuardianID = p.UserID
	} else {
		filter.GuardianID = ""
	}
}

func toSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}

func fromSet(set map[string]bool) []string {
	vals := make([]string, 0, len(set))
	for v := range set {
		vals = append(vals, v)
	}
	return vals
}
