package emailsvc

import (
	"bytes"
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	logsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/logger"
)

func Test_sendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := newSendgridService(conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))

	m := svc.prepare(core.EmailMessage{
		To:           []mail.Address{{Name: "Paul Parent", Address: "paul@home.cd"}, {Name: "Pia Parent", Address: "pia@home.cd"}},
		Bcc:          []mail.Address{{Address: "records@school.cd"}},
		Subject:      "Vaccination consent request: Measles",
		Refs:         map[string]string{"participation_id": "p1", "campaign_id": "c1"},
		TemplateName: "consent_request",
		TextContent:  "Please decide.",
	})

	assert.Equal(t, conf.DefaultFromEmail.Address, m.From.Address)
	assert.Equal(t, []string{"consent_request"}, m.Categories)
	require.Len(t, m.Personalizations, 2)
	for i, to := range []string{"paul@home.cd", "pia@home.cd"} {
		p := m.Personalizations[i]
		assert.Equal(t, "[School Medical Care] Vaccination consent request: Measles", p.Subject)
		require.Len(t, p.To, 1)
		assert.Equal(t, to, p.To[0].Address)
		require.Len(t, p.BCC, 1)
		assert.Equal(t, map[string]string{"participation_id": "p1", "campaign_id": "c1"}, p.CustomArgs)
	}
	// no html part without html content
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)

	m = svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Address: "nina@school.cd"}},
		BodyStr:     "hi",
		TextContent: "hi",
		HTMLContent: "<p>hi</p>",
		Attachments: []core.Attachment{{Content: bytes.NewBufferString("aGk="), ContentType: "text/plain", Filename: "hi.txt"}},
	})
	assert.Empty(t, m.Categories)
	assert.Empty(t, m.Personalizations[0].CustomArgs)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/html", m.Content[1].Type)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "hi.txt", m.Attachments[0].Filename)
	assert.Equal(t, "attachment", m.Attachments[0].Disposition)
}
