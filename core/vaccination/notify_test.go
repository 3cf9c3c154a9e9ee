package vaccination_test

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
	appfs "github.com/huyld1504/SchoolMedicalCareSystem-sub005/fs"
	emailsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/email"
	logsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/logger"
	testutil "github.com/huyld1504/SchoolMedicalCareSystem-sub005/tests"
)

func newEmailNotifier(t *testing.T, f *fixture) *vaccination.EmailNotifier {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, logger, true)
	emailsvc.TakeSentMessages()
	t.Cleanup(func() { emailsvc.TakeSentMessages() })
	return vaccination.NewEmailNotifier(emailsvc.NewConsoleServiceMock(conf), f.students, f.users, logger)
}

func recipients(messages []core.EmailMessage) []string {
	var to []string
	for _, msg := range messages {
		for _, addr := range msg.To {
			to = append(to, addr.Address)
		}
	}
	return to
}

func TestEmailNotifier_ConsentRequested(t *testing.T) {
	f := newFixture(t)
	n := newEmailNotifier(t, f)
	ctx := context.Background()

	orphan := testutil.CreateStudent(t, f.stdRepo, "s004", "Oli Four", "P2")
	c := f.createCampaign(t, "Measles", f.admin)
	byStudent := f.enroll(t, c, f.s1, f.s3, orphan)
	parts := []vaccination.Participation{byStudent[f.s1.ID], byStudent[f.s3.ID], byStudent[orphan.ID]}

	n.ConsentRequested(ctx, c, parts)
	sent := emailsvc.TakeSentMessages()
	require.Len(t, sent, 2)
	assert.ElementsMatch(t, []string{f.parent1.Email, f.parent2.Email}, recipients(sent))

	for _, msg := range sent {
		assert.Equal(t, "Vaccination consent request: Measles", msg.Subject)
		if msg.To[0] == (mail.Address{Name: f.parent1.Name, Address: f.parent1.Email}) {
			assert.Contains(t, msg.TextContent, "Sam One (s001)")
			assert.Contains(t, msg.TextContent, "scheduled on 2026-10-01")
			assert.Contains(t, msg.TextContent, "http://localhost:3000/parent/participations/"+byStudent[f.s1.ID].ID)
			assert.Equal(t, map[string]string{
				"campaign_id":      c.ID,
				"participation_id": byStudent[f.s1.ID].ID,
				"student_id":       f.s1.ID,
			}, msg.Refs)
		} else {
			assert.Contains(t, msg.TextContent, "Tim Three (s003)")
		}
		assert.NotEmpty(t, msg.HTMLContent)
	}

	n.ConsentRequested(ctx, c, nil)
	assert.Empty(t, emailsvc.TakeSentMessages())
}

func TestEmailNotifier_VaccinationRecorded(t *testing.T) {
	f := newFixture(t)
	n := newEmailNotifier(t, f)
	ctx := context.Background()

	c := f.createCampaign(t, "Measles", f.admin)
	part := f.enroll(t, c, f.s2)[f.s2.ID]
	_, err := f.svc.SetConsent(ctx, part.ID, f.parent1, vaccination.ConsentDecision{Consent: vaccination.ConsentApproved})
	require.NoError(t, err)
	part, err = f.svc.RecordVaccination(ctx, part.ID, f.nurse, vaccination.VaccinationRecord{Status: vaccination.VaccinationCompleted})
	require.NoError(t, err)

	n.VaccinationRecorded(ctx, c, part)
	sent := emailsvc.TakeSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{f.parent1.Email}, recipients(sent))
	assert.Equal(t, "Vaccination completed: Measles", sent[0].Subject)
	assert.Equal(t, part.ID, sent[0].Refs["participation_id"])
	assert.Contains(t, sent[0].TextContent, "Sue Two")
	assert.Contains(t, sent[0].TextContent, part.VaccinationDate.Format("2006-01-02"))
}
