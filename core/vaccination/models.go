package vaccination

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
)

// Campaign statuses
const (
	CampaignPlanned   = "planned"
	CampaignOngoing   = "ongoing"
	CampaignCompleted = "completed"
	CampaignCancelled = "cancelled"
)

// Parent consents
const (
	ConsentPending  = "pending"
	ConsentApproved = "approved"
	ConsentDenied   = "denied"
)

// Vaccination statuses
const (
	VaccinationPending   = "pending"
	VaccinationCompleted = "completed"
	VaccinationMissed    = "missed"
	VaccinationCancelled = "cancelled"
)

const dateLayout = "2006-01-02"

var (
	CampaignStatuses    = []string{CampaignPlanned, CampaignOngoing, CampaignCompleted, CampaignCancelled}
	Consents            = []string{ConsentPending, ConsentApproved, ConsentDenied}
	VaccinationStatuses = []string{VaccinationPending, VaccinationCompleted, VaccinationMissed, VaccinationCancelled}
)

type Campaign struct {
	ID            string    `json:"id"`
	VaccineName   string    `json:"vaccine_name"`
	VaccineType   string    `json:"vaccine_type"`
	Manufacturer  string    `json:"manufacturer,omitempty"`
	Description   string    `json:"description,omitempty"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Status        string    `json:"status"`
	CreatedBy     string    `json:"created_by"`
	CreatorName   string    `json:"creator_name"`
	CreatorEmail  string    `json:"creator_email"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// CampaignRef is the part of a Campaign joined onto participation query results.
type CampaignRef struct {
	ID            string    `json:"id"`
	VaccineName   string    `json:"vaccine_name"`
	VaccineType   string    `json:"vaccine_type"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Status        string    `json:"status"`
}

func (c Campaign) Ref() *CampaignRef {
	return &CampaignRef{
		ID:            c.ID,
		VaccineName:   c.VaccineName,
		VaccineType:   c.VaccineType,
		ScheduledDate: c.ScheduledDate,
		Status:        c.Status,
	}
}

type Participation struct {
	ID                string       `json:"id"`
	CampaignID        string       `json:"campaign_id"`
	StudentID         string       `json:"student_id"`
	StudentName       string       `json:"student_name"`
	StudentCode       string       `json:"student_code"`
	ParentConsent     string       `json:"parent_consent"`
	ConsentNote       string       `json:"consent_note,omitempty"`
	ConsentBy         string       `json:"consent_by,omitempty"`
	ConsentAt         *time.Time   `json:"consent_at,omitempty"`
	VaccinationStatus string       `json:"vaccination_status"`
	VaccinationNote   string       `json:"vaccination_note,omitempty"`
	VaccinationDate   *time.Time   `json:"vaccination_date,omitempty"`
	NurseID           string       `json:"nurse_id,omitempty"`
	BatchID           string       `json:"-"`
	Campaign          *CampaignRef `json:"campaign,omitempty"` // set on reads only
	CreatedAt         time.Time    `json:"created_at"`         // UTC
	UpdatedAt         time.Time    `json:"updated_at"`         // UTC
}

// NewCampaign contains information needed to create a new Campaign.
type NewCampaign struct {
	VaccineName   string `json:"vaccine_name" validate:"required,notblank,max=128"`
	VaccineType   string `json:"vaccine_type" validate:"required,notblank,max=64"`
	Manufacturer  string `json:"manufacturer" validate:"omitempty,max=128"`
	Description   string `json:"description" validate:"omitempty,max=2048"`
	ScheduledDate string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
}

func (nc *NewCampaign) Validate(validate *validator.Validate) error {
	nc.VaccineName = core.CleanString(nc.VaccineName)
	nc.VaccineType = core.CleanString(nc.VaccineType)
	nc.Manufacturer = core.CleanString(nc.Manufacturer)
	nc.Description = core.CleanString(nc.Description)
	nc.ScheduledDate = core.CleanString(nc.ScheduledDate)
	return validate.Struct(nc)
}

// UpdateCampaign defines what information may be provided to modify an existing Campaign.
// Nil fields are left untouched.
type UpdateCampaign struct {
	VaccineName   *string `json:"vaccine_name" validate:"omitempty,notblank,max=128"`
	VaccineType   *string `json:"vaccine_type" validate:"omitempty,notblank,max=64"`
	Manufacturer  *string `json:"manufacturer" validate:"omitempty,max=128"`
	Description   *string `json:"description" validate:"omitempty,max=2048"`
	ScheduledDate *string `json:"scheduled_date" validate:"omitempty,datetime=2006-01-02"`
	Status        *string `json:"status" validate:"omitempty,oneof=planned ongoing completed cancelled"`
}

func (uc *UpdateCampaign) Validate(validate *validator.Validate) error {
	for _, fld := range []*string{uc.VaccineName, uc.VaccineType, uc.Manufacturer, uc.Description, uc.ScheduledDate, uc.Status} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	return validate.Struct(uc)
}

// apply copies the set fields of `uc` onto `c`.
func (uc UpdateCampaign) apply(c *Campaign) error {
	if uc.VaccineName != nil {
		c.VaccineName = *uc.VaccineName
	}
	if uc.VaccineType != nil {
		c.VaccineType = *uc.VaccineType
	}
	if uc.Manufacturer != nil {
		c.Manufacturer = *uc.Manufacturer
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.ScheduledDate != nil {
		date, err := parseDate("scheduled_date", *uc.ScheduledDate)
		if err != nil {
			return err
		}
		c.ScheduledDate = date
	}
	if uc.Status != nil {
		if !isOneOf(*uc.Status, CampaignStatuses) {
			return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid value"})
		}
		c.Status = *uc.Status
	}
	return nil
}

type AddStudents struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

func (as *AddStudents) Validate(validate *validator.Validate) error {
	as.StudentIDs = core.DedupeStrings(as.StudentIDs)
	return validate.Struct(as)
}

// ConsentDecision is a parent's answer to a consent request.
type ConsentDecision struct {
	Consent string `json:"consent" validate:"required,oneof=approved denied"`
	Note    string `json:"note" validate:"omitempty,max=1024"`
}

func (cd *ConsentDecision) Validate(validate *validator.Validate) error {
	cd.Consent = core.CleanString(cd.Consent, true /* lower */)
	cd.Note = core.CleanString(cd.Note)
	return validate.Struct(cd)
}

// VaccinationRecord is a nurse's report of an administration attempt.
type VaccinationRecord struct {
	Status string `json:"status" validate:"required,oneof=completed missed cancelled"`
	Note   string `json:"note" validate:"omitempty,max=1024"`
}

func (vr *VaccinationRecord) Validate(validate *validator.Validate) error {
	vr.Status = core.CleanString(vr.Status, true /* lower */)
	vr.Note = core.CleanString(vr.Note)
	return validate.Struct(vr)
}

// ConsentUpdate is the storage-level change applied by SetConsent.
type ConsentUpdate struct {
	Consent   string
	Note      string
	By        string
	At        time.Time
	UpdatedAt time.Time
}

// VaccinationUpdate is the storage-level change applied by RecordVaccination.
// Date is nil unless Status is completed.
type VaccinationUpdate struct {
	Status    string
	Note      string
	NurseID   string
	Date      *time.Time
	UpdatedAt time.Time
}

// Queries

type CampaignFilter struct {
	Keyword string `query:"keyword" json:"keyword"`
	Status  string `query:"status" json:"status" validate:"omitempty,oneof=planned ongoing completed cancelled"`
}

func (f *CampaignFilter) Clean() {
	f.Keyword = core.CleanString(f.Keyword)
	f.Status = core.CleanString(f.Status, true /* lower */)
}

type ParticipationFilter struct {
	CampaignID        string `query:"campaign_id" json:"campaign_id"`
	StudentID         string `query:"student_id" json:"student_id"`
	Keyword           string `query:"keyword" json:"keyword"`
	Consent           string `query:"consent" json:"consent" validate:"omitempty,oneof=pending approved denied"`
	VaccinationStatus string `query:"vaccination_status" json:"vaccination_status" validate:"omitempty,oneof=pending completed missed cancelled"`
}

func (f *ParticipationFilter) Clean() {
	f.CampaignID = core.CleanString(f.CampaignID)
	f.StudentID = core.CleanString(f.StudentID)
	f.Keyword = core.CleanString(f.Keyword)
	f.Consent = core.CleanString(f.Consent, true /* lower */)
	f.VaccinationStatus = core.CleanString(f.VaccinationStatus, true /* lower */)
}

// Scope is the part of the data a caller may read, as resolved by a Policy.
type Scope struct {
	// CampaignStatuses restricts campaigns (and participations, through their campaign); empty means any.
	CampaignStatuses []string
	// Restricted limits results to StudentIDs (participations) and CampaignIDs (campaigns).
	Restricted  bool
	StudentIDs  []string
	CampaignIDs []string
}

// CampaignQuery is what a CampaignRepository needs to list campaigns.
type CampaignQuery struct {
	Filter     CampaignFilter
	Scope      Scope
	Pagination core.Pagination
	Ordering   []core.DBOrdering
}

// ParticipationQuery is what a ParticipationRepository needs to list participations.
type ParticipationQuery struct {
	Filter     ParticipationFilter
	Scope      Scope
	Pagination core.Pagination
	Ordering   []core.DBOrdering
}

type CampaignPage struct {
	Records []Campaign `json:"records"`
	core.PageInfo
}

type ParticipationPage struct {
	Records []Participation `json:"records"`
	core.PageInfo
}

func parseDate(field, val string) (time.Time, error) {
	date, err := time.Parse(dateLayout, val)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: field, Error: "invalid date"})
	}
	return date, nil
}

func isOneOf(val string, vals []string) bool {
	for _, v := range vals {
		if v == val {
			return true
		}
	}
	return false
}
