package vaccination

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
)

const (
	consentRequestTemplate      = "consent_request"
	vaccinationRecordedTemplate = "vaccination_recorded"
)

// Notifier tells guardians about workflow events. Failures are the notifier's concern and never reach the caller.
type Notifier interface {
	ConsentRequested(ctx context.Context, c Campaign, parts []Participation)
	VaccinationRecorded(ctx context.Context, c Campaign, part Participation)
}

type noopNotifier struct{}

func (noopNotifier) ConsentRequested(context.Context, Campaign, []Participation) {}
func (noopNotifier) VaccinationRecorded(context.Context, Campaign, Participation) {}

// NoopNotifier notifies nobody.
var NoopNotifier Notifier = noopNotifier{}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

// EmailNotifier emails the guardians of the students concerned.
type EmailNotifier struct {
	mailSvc  core.EmailService
	students StudentFinder
	users    student.UserLister
	logger   core.Logger
}

var _ Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(mailSvc core.EmailService, students StudentFinder, users student.UserLister, logger core.Logger) *EmailNotifier {
	return &EmailNotifier{
		mailSvc:  mailSvc,
		students: students,
		users:    users,
		logger:   logger,
	}
}

// guardiansOf maps each student ID to the guardians of that student who have an email address.
func (n *EmailNotifier) guardiansOf(ctx context.Context, studentIDs ...string) (map[string][]user.User, error) {
	students, err := n.students.ListByID(ctx, studentIDs...)
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}

	var guardianIDs []string
	for _, s := range students {
		guardianIDs = append(guardianIDs, s.GuardianIDs...)
	}
	guardians, err := n.users.ListByID(ctx, guardianIDs...)
	if err != nil {
		return nil, errors.Wrap(err, "listing guardians")
	}
	byID := make(map[string]user.User, len(guardians))
	for _, g := range guardians {
		if g.Email != "" && g.IsActive {
			byID[g.ID] = g
		}
	}

	res := make(map[string][]user.User, len(students))
	for _, s := range students {
		for _, gid := range s.GuardianIDs {
			if g, ok := byID[gid]; ok {
				res[s.ID] = append(res[s.ID], g)
			}
		}
	}
	return res, nil
}

func (n *EmailNotifier) ConsentRequested(ctx context.Context, c Campaign, parts []Participation) {
	if len(parts) == 0 {
		return
	}
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		ids = append(ids, part.StudentID)
	}
	guardians, err := n.guardiansOf(ctx, ids...)
	if err != nil {
		n.logger.Error("notifying consent request", errors.Wrap(err, "finding guardians"))
		return
	}

	var messages []*core.EmailMessage
	for _, part := range parts {
		for _, g := range guardians[part.StudentID] {
			messages = append(messages, &core.EmailMessage{
				To:           []mail.Address{{Name: g.Name, Address: g.Email}},
				Subject:      "Vaccination consent request: " + c.VaccineName,
				Refs:         refs(c, part),
				TemplateName: consentRequestTemplate,
				TemplateData: map[string]string{
					"GuardianName":    g.Name,
					"StudentName":     part.StudentName,
					"StudentCode":     part.StudentCode,
					"VaccineName":     c.VaccineName,
					"ScheduledDate":   formatDate(&c.ScheduledDate),
					"ParticipationID": part.ID,
				},
			})
		}
	}
	if len(messages) > 0 {
		n.mailSvc.SendMessages(messages...)
	}
}

func (n *EmailNotifier) VaccinationRecorded(ctx context.Context, c Campaign, part Participation) {
	guardians, err := n.guardiansOf(ctx, part.StudentID)
	if err != nil {
		n.logger.Error("notifying vaccination outcome", errors.Wrap(err, "finding guardians"))
		return
	}

	var messages []*core.EmailMessage
	for _, g := range guardians[part.StudentID] {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: g.Name, Address: g.Email}},
			Subject:      "Vaccination " + part.VaccinationStatus + ": " + c.VaccineName,
			Refs:         refs(c, part),
			TemplateName: vaccinationRecordedTemplate,
			TemplateData: map[string]string{
				"GuardianName":    g.Name,
				"StudentName":     part.StudentName,
				"VaccineName":     c.VaccineName,
				"Status":          part.VaccinationStatus,
				"VaccinationDate": formatDate(part.VaccinationDate),
				"Note":            part.VaccinationNote,
			},
		})
	}
	if len(messages) > 0 {
		n.mailSvc.SendMessages(messages...)
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func refs(c Campaign, part Participation) map[string]string {
	return map[string]string{
		"campaign_id":      c.ID,
		"participation_id": part.ID,
		"student_id":       part.StudentID,
	}
}
