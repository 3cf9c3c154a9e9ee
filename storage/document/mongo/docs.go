package mongorepos

import (
	"time"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

type campaignDoc struct {
	ID            string    `bson:"_id"`
	VaccineName   string    `bson:"vaccine_name"`
	VaccineType   string    `bson:"vaccine_type"`
	Manufacturer  string    `bson:"manufacturer,omitempty"`
	Description   string    `bson:"description,omitempty"`
	ScheduledDate time.Time `bson:"scheduled_date"`
	Status        string    `bson:"status"`
	CreatedBy     string    `bson:"created_by"`
	CreatorName   string    `bson:"creator_name"`
	CreatorEmail  string    `bson:"creator_email"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func newCampaignDoc(c vaccination.Campaign) campaignDoc {
	return campaignDoc{
		ID:            c.ID,
		VaccineName:   c.VaccineName,
		VaccineType:   c.VaccineType,
		Manufacturer:  c.Manufacturer,
		Description:   c.Description,
		ScheduledDate: c.ScheduledDate,
		Status:        c.Status,
		CreatedBy:     c.CreatedBy,
		CreatorName:   c.CreatorName,
		CreatorEmail:  c.CreatorEmail,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (d campaignDoc) toCampaign() vaccination.Campaign {
	return vaccination.Campaign{
		ID:            d.ID,
		VaccineName:   d.VaccineName,
		VaccineType:   d.VaccineType,
		Manufacturer:  d.Manufacturer,
		Description:   d.Description,
		ScheduledDate: d.ScheduledDate.UTC(),
		Status:        d.Status,
		CreatedBy:     d.CreatedBy,
		CreatorName:   d.CreatorName,
		CreatorEmail:  d.CreatorEmail,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type participationDoc struct {
	ID                string       `bson:"_id"`
	CampaignID        string       `bson:"campaign_id"`
	StudentID         string       `bson:"student_id"`
	StudentName       string       `bson:"student_name"`
	StudentCode       string       `bson:"student_code"`
	ParentConsent     string       `bson:"parent_consent"`
	ConsentNote       string       `bson:"consent_note,omitempty"`
	ConsentBy         string       `bson:"consent_by,omitempty"`
	ConsentAt         *time.Time   `bson:"consent_at,omitempty"`
	VaccinationStatus string       `bson:"vaccination_status"`
	VaccinationNote   string       `bson:"vaccination_note,omitempty"`
	VaccinationDate   *time.Time   `bson:"vaccination_date,omitempty"`
	NurseID           string       `bson:"nurse_id,omitempty"`
	BatchID           string       `bson:"batch_id,omitempty"`
	CreatedAt         time.Time    `bson:"created_at"`
	UpdatedAt         time.Time    `bson:"updated_at"`
	Campaign          *campaignDoc `bson:"campaign,omitempty"` // joined by the query pipeline
}

func newParticipationDoc(p vaccination.Participation) participationDoc {
	return participationDoc{
		ID:                p.ID,
		CampaignID:        p.CampaignID,
		StudentID:         p.StudentID,
		StudentName:       p.StudentName,
		StudentCode:       p.StudentCode,
		ParentConsent:     p.ParentConsent,
		ConsentNote:       p.ConsentNote,
		ConsentBy:         p.ConsentBy,
		ConsentAt:         p.ConsentAt,
		VaccinationStatus: p.VaccinationStatus,
		VaccinationNote:   p.VaccinationNote,
		VaccinationDate:   p.VaccinationDate,
		NurseID:           p.NurseID,
		BatchID:           p.BatchID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (d participationDoc) toParticipation() vaccination.Participation {
	p := vaccination.Participation{
		ID:                d.ID,
		CampaignID:        d.CampaignID,
		StudentID:         d.StudentID,
		StudentName:       d.StudentName,
		StudentCode:       d.StudentCode,
		ParentConsent:     d.ParentConsent,
		ConsentNote:       d.ConsentNote,
		ConsentBy:         d.ConsentBy,
		ConsentAt:         utcPtr(d.ConsentAt),
		VaccinationStatus: d.VaccinationStatus,
		VaccinationNote:   d.VaccinationNote,
		VaccinationDate:   utcPtr(d.VaccinationDate),
		NurseID:           d.NurseID,
		BatchID:           d.BatchID,
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
	if d.Campaign != nil {
		p.Campaign = d.Campaign.toCampaign().Ref()
	}
	return p
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
