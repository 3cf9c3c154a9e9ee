package vaccination

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrCampaignNotFound      = core.NewNotFoundError("campaign not found")
	ErrParticipationNotFound = core.NewNotFoundError("participation not found")
	ErrNotCreator            = core.NewAuthorizationError("only the creator of a campaign may change it")
	ErrNotGuardian           = core.NewAuthorizationError("only a guardian of the student may decide on consent")
	ErrNotAdmin              = core.NewAuthorizationError("only admins may manage campaigns")
	ErrNotNurse              = core.NewAuthorizationError("only nurses may record vaccinations")
	ErrCampaignNotPlanned    = core.NewInvalidStateError("students may only be added to a planned campaign")
	ErrConsentNotApproved    = core.NewPreconditionError("parent consent has not been approved")
	ErrAlreadyVaccinated     = core.NewPreconditionError("vaccination has already been completed")
	ErrConsentLocked         = core.NewPreconditionError("consent cannot change once the vaccination is completed")
	// ErrNotRecordable is returned by ParticipationRepository.RecordVaccination when its guard does not hold anymore.
	ErrNotRecordable       = core.NewPreconditionError("participation is not recordable: consent not approved or vaccination already completed")
	ErrParticipationExists = core.NewDuplicateError("a student already participates in this campaign")

	errDenialNeedsNote = "a denial must carry a reason"

	CampaignSortableFields = map[string]bool{
		"created_at":     true,
		"updated_at":     true,
		"scheduled_date": true,
		"vaccine_name":   true,
		"vaccine_type":   true,
		"status":         true,
	}
	ParticipationSortableFields = map[string]bool{
		"created_at":         true,
		"updated_at":         true,
		"student_name":       true,
		"student_code":       true,
		"parent_consent":     true,
		"vaccination_status": true,
		"vaccination_date":   true,
	}
	DefaultOrdering = core.DBOrdering{Field: "created_at", Ascending: false}
)

type (
	CampaignRepository interface {
		CreateCampaign(ctx context.Context, c Campaign) (Campaign, error)
		// GetCampaign fails with ErrCampaignNotFound.
		GetCampaign(ctx context.Context, id string) (Campaign, error)
		UpdateCampaign(ctx context.Context, c Campaign) (Campaign, error)
		// QueryCampaigns returns the requested page along with the total number of matches.
		// CampaignFilter.Keyword does a case-insensitive match on the vaccine name/type and the creator name/email.
		QueryCampaigns(ctx context.Context, q CampaignQuery) ([]Campaign, int64, error)
	}

	ParticipationRepository interface {
		// InsertParticipations inserts all of `parts` or none of them.
		// It fails with a duplicate error when a (campaign, student) pair already exists.
		InsertParticipations(ctx context.Context, parts []Participation) error
		// ExistingStudents returns the students among `studentIDs` that already participate in the campaign.
		ExistingStudents(ctx context.Context, campaignID string, studentIDs []string) ([]string, error)
		// GetParticipation fails with ErrParticipationNotFound.
		GetParticipation(ctx context.Context, id string) (Participation, error)
		// SetConsent applies `upd` only while the vaccination is not completed, in a single atomic write.
		// It fails with ErrConsentLocked when the vaccination is completed.
		SetConsent(ctx context.Context, id string, upd ConsentUpdate) (Participation, error)
		// RecordVaccination applies `upd` only while consent is approved and the vaccination is not completed,
		// in a single atomic write. It fails with ErrNotRecordable when the guard does not hold.
		RecordVaccination(ctx context.Context, id string, upd VaccinationUpdate) (Participation, error)
		// QueryParticipations returns the requested page, joined with the campaigns, along with the total number of matches.
		// ParticipationFilter.Keyword does a case-insensitive match on the student name/code and the vaccine name/type.
		QueryParticipations(ctx context.Context, q ParticipationQuery) ([]Participation, int64, error)
		// CampaignIDsForStudents returns the distinct campaigns in which one of the students participates.
		CampaignIDsForStudents(ctx context.Context, studentIDs []string) ([]string, error)
	}

	// StudentFinder finds students; *student.Service is one.
	StudentFinder interface {
		GetByID(ctx context.Context, id string) (student.Student, error)
		ListByID(ctx context.Context, ids ...string) ([]student.Student, error)
		ListByGuardian(ctx context.Context, guardianID string) ([]student.Student, error)
	}

	Service struct {
		campaigns      CampaignRepository
		participations ParticipationRepository
		students       StudentFinder
		notifier       Notifier
		metrics        MetricsRecorder
		logger         core.Logger
		pagination     core.PaginationConfig
	}

	Option func(svc *Service)
)

func WithNotifier(n Notifier) Option {
	return func(svc *Service) { svc.notifier = n }
}

func WithMetrics(m MetricsRecorder) Option {
	return func(svc *Service) { svc.metrics = m }
}

func WithLogger(l core.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

func WithPagination(conf core.PaginationConfig) Option {
	return func(svc *Service) { svc.pagination = conf }
}

func NewService(campaigns CampaignRepository, participations ParticipationRepository, students StudentFinder, opts ...Option) *Service {
	svc := &Service{
		campaigns:      campaigns,
		participations: participations,
		students:       students,
		notifier:       NoopNotifier,
		metrics:        NoopMetrics,
		logger:         noopLogger{},
		pagination:     core.PaginationConfig{DefaultLimit: 20, MaxLimit: 100},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// reject records a failed operation and hands its error back.
func (svc *Service) reject(op string, err error) error {
	svc.metrics.Rejected(op, err)
	return err
}

// PolicyFor builds the read policy of `caller`.
func (svc *Service) PolicyFor(ctx context.Context, caller user.User) (*Policy, error) {
	if caller.PrimaryRole() != user.PrimaryParent {
		return newPolicy(caller, nil, nil)
	}

	children, err := svc.students.ListByGuardian(ctx, caller.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing children")
	}
	studentIDs := make([]string, 0, len(children))
	for _, s := range children {
		studentIDs = append(studentIDs, s.ID)
	}
	var campaignIDs []string
	if len(studentIDs) > 0 {
		if campaignIDs, err = svc.participations.CampaignIDsForStudents(ctx, studentIDs); err != nil {
			return nil, errors.Wrap(err, "listing children campaigns")
		}
	}
	return newPolicy(caller, studentIDs, campaignIDs)
}

// Campaign Lifecycle

// CreateCampaign creates a planned campaign owned by `admin`. `nc` is expected to be validated already.
func (svc *Service) CreateCampaign(ctx context.Context, nc NewCampaign, admin user.User) (Campaign, error) {
	const op = "create_campaign"
	if !admin.IsAdmin() {
		return Campaign{}, svc.reject(op, ErrNotAdmin)
	}
	date, err := parseDate("scheduled_date", nc.ScheduledDate)
	if err != nil {
		return Campaign{}, svc.reject(op, err)
	}

	now := NowFunc().UTC()
	c := Campaign{
		ID:            uuid.New().String(),
		VaccineName:   nc.VaccineName,
		VaccineType:   nc.VaccineType,
		Manufacturer:  nc.Manufacturer,
		Description:   nc.Description,
		ScheduledDate: date,
		Status:        CampaignPlanned,
		CreatedBy:     admin.ID,
		CreatorName:   admin.Name,
		CreatorEmail:  admin.Email,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c, err = svc.campaigns.CreateCampaign(ctx, c)
	if err != nil {
		return Campaign{}, errors.Wrap(err, "creating campaign")
	}
	svc.metrics.CampaignCreated()
	return c, nil
}

// UpdateCampaign applies `uc` to the campaign; only its creator may do so.
func (svc *Service) UpdateCampaign(ctx context.Context, id string, uc UpdateCampaign, admin user.User) (Campaign, error) {
	const op = "update_campaign"
	if !admin.IsAdmin() {
		return Campaign{}, svc.reject(op, ErrNotAdmin)
	}
	c, err := svc.campaigns.GetCampaign(ctx, id)
	if err != nil {
		return Campaign{}, svc.reject(op, err)
	}
	if c.CreatedBy != admin.ID {
		return Campaign{}, svc.reject(op, ErrNotCreator)
	}
	if err := uc.apply(&c); err != nil {
		return Campaign{}, svc.reject(op, err)
	}
	c.UpdatedAt = NowFunc().UTC()

	c, err = svc.campaigns.UpdateCampaign(ctx, c)
	if err != nil {
		return Campaign{}, errors.Wrap(err, "updating campaign")
	}
	return c, nil
}

// AddStudentsToCampaign enrolls the students in a planned campaign, all of them or none.
// Every new participation starts with a pending consent and a pending vaccination.
func (svc *Service) AddStudentsToCampaign(ctx context.Context, campaignID string, studentIDs []string, admin user.User) ([]Participation, error) {
	const op = "add_students"
	if !admin.IsAdmin() {
		return nil, svc.reject(op, ErrNotAdmin)
	}
	c, err := svc.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, svc.reject(op, err)
	}
	if c.Status != CampaignPlanned {
		return nil, svc.reject(op, ErrCampaignNotPlanned)
	}

	ids := core.DedupeStrings(studentIDs)
	if len(ids) == 0 {
		return nil, svc.reject(op, core.NewValidationError(nil, core.FieldError{Field: "student_ids", Error: "this field is required"}))
	}

	students, err := svc.students.ListByID(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	if len(students) != len(ids) {
		return nil, svc.reject(op, core.NewNotFoundError("students not found: "+strings.Join(missingStudents(ids, students), ", ")))
	}

	existing, err := svc.participations.ExistingStudents(ctx, campaignID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "checking existing participations")
	}
	if len(existing) > 0 {
		return nil, svc.reject(op, core.NewDuplicateError(
			fmt.Sprintf("students already participate in this campaign: %s", strings.Join(existing, ", ")),
			existing...,
		))
	}

	now := NowFunc().UTC()
	batchID := uuid.New().String()
	parts := make([]Participation, 0, len(students))
	for _, s := range students {
		parts = append(parts, Participation{
			ID:                uuid.New().String(),
			CampaignID:        c.ID,
			StudentID:         s.ID,
			StudentName:       s.Name,
			StudentCode:       s.Code,
			ParentConsent:     ConsentPending,
			VaccinationStatus: VaccinationPending,
			BatchID:           batchID,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	if err := svc.participations.InsertParticipations(ctx, parts); err != nil {
		if core.IsDuplicate(err) {
			return nil, svc.reject(op, err)
		}
		return nil, errors.Wrap(err, "inserting participations")
	}

	svc.metrics.StudentsEnrolled(len(parts))
	svc.notifier.ConsentRequested(ctx, c, parts)
	return parts, nil
}

// Consent Workflow

// SetConsent records the decision of a guardian of the participating student.
// Deciding again overwrites the previous decision, until the vaccination is completed.
func (svc *Service) SetConsent(ctx context.Context, participationID string, parent user.User, cd ConsentDecision) (Participation, error) {
	const op = "set_consent"
	if cd.Consent != ConsentApproved && cd.Consent != ConsentDenied {
		return Participation{}, svc.reject(op, core.NewValidationError(nil, core.FieldError{Field: "consent", Error: "invalid value"}))
	}

	part, err := svc.participations.GetParticipation(ctx, participationID)
	if err != nil {
		return Participation{}, svc.reject(op, err)
	}
	s, err := svc.students.GetByID(ctx, part.StudentID)
	if err != nil && !core.IsNotFound(err) {
		return Participation{}, errors.Wrap(err, "getting student")
	}
	if err != nil || !s.HasGuardian(parent.ID) {
		return Participation{}, svc.reject(op, ErrNotGuardian)
	}
	if part.VaccinationStatus == VaccinationCompleted {
		return Participation{}, svc.reject(op, ErrConsentLocked)
	}

	note := core.CleanString(cd.Note)
	if cd.Consent == ConsentDenied && note == "" {
		return Participation{}, svc.reject(op, core.NewValidationError(nil, core.FieldError{Field: "note", Error: errDenialNeedsNote}))
	}

	now := NowFunc().UTC()
	part, err = svc.participations.SetConsent(ctx, participationID, ConsentUpdate{
		Consent:   cd.Consent,
		Note:      note,
		By:        parent.ID,
		At:        now,
		UpdatedAt: now,
	})
	if err != nil {
		if core.IsPrecondition(err) || core.IsNotFound(err) {
			return Participation{}, svc.reject(op, err)
		}
		return Participation{}, errors.Wrap(err, "setting consent")
	}
	svc.metrics.ConsentDecided(cd.Consent)
	return part, nil
}

// Administration Workflow

// RecordVaccination records the outcome of an administration attempt by `nurse`.
// Consent must be approved; a completed vaccination is final.
func (svc *Service) RecordVaccination(ctx context.Context, participationID string, nurse user.User, vr VaccinationRecord) (Participation, error) {
	const op = "record_vaccination"
	if !nurse.IsNurse() {
		return Participation{}, svc.reject(op, ErrNotNurse)
	}
	switch vr.Status {
	case VaccinationCompleted, VaccinationMissed, VaccinationCancelled:
	default:
		return Participation{}, svc.reject(op, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid value"}))
	}

	part, err := svc.participations.GetParticipation(ctx, participationID)
	if err != nil {
		return Participation{}, svc.reject(op, err)
	}
	if part.ParentConsent != ConsentApproved {
		return Participation{}, svc.reject(op, ErrConsentNotApproved)
	}
	if part.VaccinationStatus == VaccinationCompleted {
		return Participation{}, svc.reject(op, ErrAlreadyVaccinated)
	}

	now := NowFunc().UTC()
	upd := VaccinationUpdate{
		Status:    vr.Status,
		Note:      core.CleanString(vr.Note),
		NurseID:   nurse.ID,
		UpdatedAt: now,
	}
	if vr.Status == VaccinationCompleted {
		upd.Date = &now
	}
	part, err = svc.participations.RecordVaccination(ctx, participationID, upd)
	if err != nil {
		if core.IsPrecondition(err) || core.IsNotFound(err) {
			return Participation{}, svc.reject(op, err)
		}
		return Participation{}, errors.Wrap(err, "recording vaccination")
	}
	svc.metrics.VaccinationRecorded(vr.Status)

	c, err := svc.campaigns.GetCampaign(ctx, part.CampaignID)
	if err != nil {
		svc.logger.Error(
			"notifying vaccination outcome",
			errors.Wrap(err, "getting campaign"),
			map[string]interface{}{"participation_id": part.ID, "campaign_id": part.CampaignID},
		)
		return part, nil
	}
	svc.notifier.VaccinationRecorded(ctx, c, part)
	return part, nil
}

// Role-Filtered Queries

// GetCampaign returns the campaign if `policy` lets its caller see it.
func (svc *Service) GetCampaign(ctx context.Context, id string, policy *Policy) (Campaign, error) {
	c, err := svc.campaigns.GetCampaign(ctx, id)
	if err != nil {
		return Campaign{}, err
	}
	if !policy.AllowsCampaign(c) {
		return Campaign{}, ErrCampaignNotFound
	}
	return c, nil
}

func (svc *Service) QueryCampaigns(ctx context.Context, policy *Policy, filter CampaignFilter, page core.Pagination, ordering []core.DBOrdering) (CampaignPage, error) {
	filter.Clean()
	page.Clean(svc.pagination.DefaultLimit, svc.pagination.MaxLimit)
	q := CampaignQuery{
		Filter:     filter,
		Scope:      policy.Scope(),
		Pagination: page,
		Ordering:   core.CleanOrderings(ordering, CampaignSortableFields, DefaultOrdering),
	}

	records, total, err := svc.campaigns.QueryCampaigns(ctx, q)
	if err != nil {
		return CampaignPage{}, errors.Wrap(err, "querying campaigns")
	}
	if records == nil {
		records = []Campaign{}
	}
	return CampaignPage{Records: records, PageInfo: core.NewPageInfo(total, page)}, nil
}

// GetParticipation returns the participation, joined with its campaign, if `policy` lets its caller see it.
func (svc *Service) GetParticipation(ctx context.Context, id string, policy *Policy) (Participation, error) {
	part, err := svc.participations.GetParticipation(ctx, id)
	if err != nil {
		return Participation{}, err
	}
	c, err := svc.campaigns.GetCampaign(ctx, part.CampaignID)
	if err != nil {
		if core.IsNotFound(err) {
			return Participation{}, ErrParticipationNotFound
		}
		return Participation{}, errors.Wrap(err, "getting campaign")
	}
	if !policy.AllowsParticipation(part, c) {
		return Participation{}, ErrParticipationNotFound
	}
	part.Campaign = c.Ref()
	return part, nil
}

func (svc *Service) QueryParticipations(ctx context.Context, policy *Policy, filter ParticipationFilter, page core.Pagination, ordering []core.DBOrdering) (ParticipationPage, error) {
	filter.Clean()
	page.Clean(svc.pagination.DefaultLimit, svc.pagination.MaxLimit)
	q := ParticipationQuery{
		Filter:     filter,
		Scope:      policy.Scope(),
		Pagination: page,
		Ordering:   core.CleanOrderings(ordering, ParticipationSortableFields, DefaultOrdering),
	}

	records, total, err := svc.participations.QueryParticipations(ctx, q)
	if err != nil {
		return ParticipationPage{}, errors.Wrap(err, "querying participations")
	}
	if records == nil {
		records = []Participation{}
	}
	return ParticipationPage{Records: records, PageInfo: core.NewPageInfo(total, page)}, nil
}

func missingStudents(ids []string, found []student.Student) []string {
	seen := make(map[string]bool, len(found))
	for _, s := range found {
		seen[s.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
