package inmemdb

import (
	"context"
	"sort"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

type participationRepository struct {
	campaigns *campaignTable
	db        *participationTable
}

var _ vaccination.ParticipationRepository = (*participationRepository)(nil)

func NewParticipationRepository(db *DB) vaccination.ParticipationRepository {
	return &participationRepository{campaigns: db.campaign, db: db.participation}
}

func (repo *participationRepository) InsertParticipations(_ context.Context, parts []vaccination.Participation) error {
	repo.campaigns.mutex.Lock()
	defer repo.campaigns.mutex.Unlock()

	// (campaign, student) is unique
	taken := make(map[[2]string]bool, len(repo.db.table)+len(parts))
	for _, p := range repo.db.table {
		taken[[2]string{p.CampaignID, p.StudentID}] = true
	}
	var dups []string
	for _, p := range parts {
		key := [2]string{p.CampaignID, p.StudentID}
		if taken[key] {
			dups = append(dups, p.StudentID)
		}
		taken[key] = true
	}
	if len(dups) > 0 {
		return core.NewDuplicateError(vaccination.ErrParticipationExists.Error(), dups...)
	}

	for _, p := range parts {
		p := p
		p.Campaign = nil
		repo.db.table[p.ID] = &p
	}
	return nil
}

func (repo *participationRepository) ExistingStudents(_ context.Context, campaignID string, studentIDs []string) ([]string, error) {
	repo.campaigns.mutex.RLock()
	defer repo.campaigns.mutex.RUnlock()

	var existing []string
	for _, p := range repo.db.table {
		if p.CampaignID == campaignID && inSlice(p.StudentID, studentIDs) {
			existing = append(existing, p.StudentID)
		}
	}
	sort.Strings(existing)
	return existing, nil
}

func (repo *participationRepository) GetParticipation(_ context.Context, id string) (vaccination.Participation, error) {
	repo.campaigns.mutex.RLock()
	defer repo.campaigns.mutex.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return vaccination.Participation{}, vaccination.ErrParticipationNotFound
}

func (repo *participationRepository) SetConsent(_ context.Context, id string, upd vaccination.ConsentUpdate) (vaccination.Participation, error) {
	repo.campaigns.mutex.Lock()
	defer repo.campaigns.mutex.Unlock()

	p, ok := repo.db.table[id]
	if !ok {
		return vaccination.Participation{}, vaccination.ErrParticipationNotFound
	}
	if p.VaccinationStatus == vaccination.VaccinationCompleted {
		return vaccination.Participation{}, vaccination.ErrConsentLocked
	}
	at := upd.At
	p.ParentConsent = upd.Consent
	p.ConsentNote = upd.Note
	p.ConsentBy = upd.By
	p.ConsentAt = &at
	p.UpdatedAt = upd.UpdatedAt
	return *p, nil
}

func (repo *participationRepository) RecordVaccination(_ context.Context, id string, upd vaccination.VaccinationUpdate) (vaccination.Participation, error) {
	repo.campaigns.mutex.Lock()
	defer repo.campaigns.mutex.Unlock()

	p, ok := repo.db.table[id]
	if !ok {
		return vaccination.Participation{}, vaccination.ErrParticipationNotFound
	}
	if p.ParentConsent != vaccination.ConsentApproved || p.VaccinationStatus == vaccination.VaccinationCompleted {
		return vaccination.Participation{}, vaccination.ErrNotRecordable
	}
	p.VaccinationStatus = upd.Status
	p.VaccinationNote = upd.Note
	p.NurseID = upd.NurseID
	p.VaccinationDate = nil
	if upd.Date != nil {
		date := *upd.Date
		p.VaccinationDate = &date
	}
	p.UpdatedAt = upd.UpdatedAt
	return *p, nil
}

func (repo *participationRepository) QueryParticipations(_ context.Context, q vaccination.ParticipationQuery) ([]vaccination.Participation, int64, error) {
	repo.campaigns.mutex.RLock()
	defer repo.campaigns.mutex.RUnlock()

	parts := make([]vaccination.Participation, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		c, ok := repo.campaigns.table[p.CampaignID]
		if !ok {
			continue
		}
		if !matchesParticipation(*p, *c, q.Filter, q.Scope) {
			continue
		}
		part := *p
		part.Campaign = c.Ref()
		parts = append(parts, part)
	}

	sort.SliceStable(parts, lessBy(q.Ordering, func(i int, name string) interface{} {
		switch name {
		case "id":
			return parts[i].ID
		case "created_at":
			return parts[i].CreatedAt
		case "updated_at":
			return parts[i].UpdatedAt
		case "student_name":
			return parts[i].StudentName
		case "student_code":
			return parts[i].StudentCode
		case "parent_consent":
			return parts[i].ParentConsent
		case "vaccination_status":
			return parts[i].VaccinationStatus
		case "vaccination_date":
			return parts[i].VaccinationDate
		}
		return nil
	}))
	start, end := paginate(len(parts), q.Pagination)
	return parts[start:end], int64(len(parts)), nil
}

func (repo *participationRepository) CampaignIDsForStudents(_ context.Context, studentIDs []string) ([]string, error) {
	repo.campaigns.mutex.RLock()
	defer repo.campaigns.mutex.RUnlock()

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, p := range repo.db.table {
		if inSlice(p.StudentID, studentIDs) && !seen[p.CampaignID] {
			seen[p.CampaignID] = true
			ids = append(ids, p.CampaignID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func matchesParticipation(p vaccination.Participation, c vaccination.Campaign, filter vaccination.ParticipationFilter, scope vaccination.Scope) bool {
	if len(scope.CampaignStatuses) > 0 && !inSlice(c.Status, scope.CampaignStatuses) {
		return false
	}
	if scope.Restricted && !inSlice(p.StudentID, scope.StudentIDs) {
		return false
	}
	if filter.CampaignID != "" && p.CampaignID != filter.CampaignID {
		return false
	}
	if filter.StudentID != "" && p.StudentID != filter.StudentID {
		return false
	}
	if filter.Consent != "" && p.ParentConsent != filter.Consent {
		return false
	}
	if filter.VaccinationStatus != "" && p.VaccinationStatus != filter.VaccinationStatus {
		return false
	}
	if filter.Keyword != "" && !containsFold(filter.Keyword, p.StudentName, p.StudentCode, c.VaccineName, c.VaccineType) {
		return false
	}
	return true
}
