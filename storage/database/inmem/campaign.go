package inmemdb

import (
	"context"
	"sort"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

type campaignRepository struct {
	db *campaignTable
}

var _ vaccination.CampaignRepository = (*campaignRepository)(nil)

func NewCampaignRepository(db *DB) vaccination.CampaignRepository {
	return &campaignRepository{db: db.campaign}
}

func (repo *campaignRepository) CreateCampaign(_ context.Context, c vaccination.Campaign) (vaccination.Campaign, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *campaignRepository) GetCampaign(_ context.Context, id string) (vaccination.Campaign, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return vaccination.Campaign{}, vaccination.ErrCampaignNotFound
}

func (repo *campaignRepository) UpdateCampaign(_ context.Context, c vaccination.Campaign) (vaccination.Campaign, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[c.ID]; !ok {
		return vaccination.Campaign{}, vaccination.ErrCampaignNotFound
	}
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *campaignRepository) QueryCampaigns(_ context.Context, q vaccination.CampaignQuery) ([]vaccination.Campaign, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	campaigns := make([]vaccination.Campaign, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		if matchesCampaign(*c, q.Filter, q.Scope) {
			campaigns = append(campaigns, *c)
		}
	}

	sort.SliceStable(campaigns, lessBy(q.Ordering, func(i int, name string) interface{} {
		return campaignField(campaigns[i], name)
	}))
	start, end := paginate(len(campaigns), q.Pagination)
	return campaigns[start:end], int64(len(campaigns)), nil
}

func matchesCampaign(c vaccination.Campaign, filter vaccination.CampaignFilter, scope vaccination.Scope) bool {
	if len(scope.CampaignStatuses) > 0 && !inSlice(c.Status, scope.CampaignStatuses) {
		return false
	}
	if scope.Restricted && !inSlice(c.ID, scope.CampaignIDs) {
		return false
	}
	if filter.Status != "" && c.Status != filter.Status {
		return false
	}
	if filter.Keyword != "" && !containsFold(filter.Keyword, c.VaccineName, c.VaccineType, c.CreatorName, c.CreatorEmail) {
		return false
	}
	return true
}

func campaignField(c vaccination.Campaign, name string) interface{} {
	switch name {
	case "id":
		return c.ID
	case "created_at":
		return c.CreatedAt
	case "updated_at":
		return c.UpdatedAt
	case "scheduled_date":
		return c.ScheduledDate
	case "vaccine_name":
		return c.VaccineName
	case "vaccine_type":
		return c.VaccineType
	case "status":
		return c.Status
	}
	return nil
}
