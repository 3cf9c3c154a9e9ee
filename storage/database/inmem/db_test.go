package inmemdb

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

func Test_paginate(t *testing.T) {
	tests := []struct {
		n          int
		p          core.Pagination
		start, end int
	}{
		{n: 0, p: core.Pagination{Page: 1, Limit: 10}, start: 0, end: 0},
		{n: 5, p: core.Pagination{}, start: 0, end: 5},
		{n: 5, p: core.Pagination{Page: 1, Limit: 2}, start: 0, end: 2},
		{n: 5, p: core.Pagination{Page: 3, Limit: 2}, start: 4, end: 5},
		{n: 5, p: core.Pagination{Page: 4, Limit: 2}, start: 5, end: 5},
		{n: 5, p: core.Pagination{Page: 1, Limit: 50}, start: 0, end: 5},
	}
	for _, tt := range tests {
		start, end := paginate(tt.n, tt.p)
		assert.Equal(t, tt.start, start, "%d %+v", tt.n, tt.p)
		assert.Equal(t, tt.end, end, "%d %+v", tt.n, tt.p)
	}
}

func Test_lessBy(t *testing.T) {
	t1 := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	type rec struct {
		id   string
		name string
		at   *time.Time
	}
	recs := []rec{{"4", "b", &t2}, {"3", "a", nil}, {"2", "b", &t1}, {"1", "a", &t1}, {"0", "b", &t1}}
	field := func(i int, name string) interface{} {
		switch name {
		case "id":
			return recs[i].id
		case "name":
			return recs[i].name
		}
		return recs[i].at
	}

	sort.SliceStable(recs, lessBy([]core.DBOrdering{{Field: "name", Ascending: true}, {Field: "at"}}, field))
	assert.Equal(t, []rec{{"1", "a", &t1}, {"3", "a", nil}, {"4", "b", &t2}, {"0", "b", &t1}, {"2", "b", &t1}}, recs)

	// ties fall back to ids
	recs = []rec{{"c", "x", nil}, {"a", "x", nil}, {"b", "x", nil}}
	sort.SliceStable(recs, lessBy(nil, field))
	assert.Equal(t, []rec{{"a", "x", nil}, {"b", "x", nil}, {"c", "x", nil}}, recs)

	assert.Equal(t, 0, compare(true, true))
	assert.Equal(t, -1, compare(false, true))
	assert.True(t, containsFold("SAM", "x", "Sam One"))
	assert.False(t, containsFold("tim", "Sam One"))
}

func TestParticipationRepository(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	campaigns := NewCampaignRepository(db)
	repo := NewParticipationRepository(db)

	c, err := campaigns.CreateCampaign(ctx, vaccination.Campaign{ID: "c1", VaccineName: "Measles", Status: vaccination.CampaignPlanned})
	require.NoError(t, err)
	part := func(id, studentID string) vaccination.Participation {
		return vaccination.Participation{
			ID:                id,
			CampaignID:        c.ID,
			StudentID:         studentID,
			ParentConsent:     vaccination.ConsentPending,
			VaccinationStatus: vaccination.VaccinationPending,
		}
	}

	require.NoError(t, repo.InsertParticipations(ctx, []vaccination.Participation{part("p1", "s1")}))

	t.Run("batches are all or nothing", func(t *testing.T) {
		err := repo.InsertParticipations(ctx, []vaccination.Participation{part("p2", "s2"), part("p3", "s1")})
		assert.True(t, core.IsDuplicate(err))
		assert.Equal(t, []string{"s1"}, core.DuplicateKeys(err))
		_, err = repo.GetParticipation(ctx, "p2")
		assert.Equal(t, vaccination.ErrParticipationNotFound, err)

		err = repo.InsertParticipations(ctx, []vaccination.Participation{part("p4", "s4"), part("p5", "s4")})
		assert.Equal(t, []string{"s4"}, core.DuplicateKeys(err))
		_, err = repo.GetParticipation(ctx, "p4")
		assert.Equal(t, vaccination.ErrParticipationNotFound, err)
	})

	t.Run("existing students", func(t *testing.T) {
		existing, err := repo.ExistingStudents(ctx, c.ID, []string{"s2", "s1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"s1"}, existing)

		ids, err := repo.CampaignIDsForStudents(ctx, []string{"s1", "s9"})
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID}, ids)
	})

	t.Run("recording is guarded", func(t *testing.T) {
		now := time.Now().UTC()
		upd := vaccination.VaccinationUpdate{Status: vaccination.VaccinationCompleted, NurseID: "n1", Date: &now, UpdatedAt: now}

		_, err := repo.RecordVaccination(ctx, "p1", upd)
		assert.Equal(t, vaccination.ErrNotRecordable, err)

		p, err := repo.SetConsent(ctx, "p1", vaccination.ConsentUpdate{Consent: vaccination.ConsentApproved, By: "u1", At: now, UpdatedAt: now})
		require.NoError(t, err)
		assert.Equal(t, vaccination.ConsentApproved, p.ParentConsent)

		p, err = repo.RecordVaccination(ctx, "p1", upd)
		require.NoError(t, err)
		assert.Equal(t, vaccination.VaccinationCompleted, p.VaccinationStatus)
		require.NotNil(t, p.VaccinationDate)
		assert.True(t, p.VaccinationDate.Equal(now))

		_, err = repo.RecordVaccination(ctx, "p1", upd)
		assert.Equal(t, vaccination.ErrNotRecordable, err)
		_, err = repo.SetConsent(ctx, "p1", vaccination.ConsentUpdate{Consent: vaccination.ConsentDenied, Note: "late", By: "u1", At: now, UpdatedAt: now})
		assert.Equal(t, vaccination.ErrConsentLocked, err)
		p, err = repo.GetParticipation(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, vaccination.ConsentApproved, p.ParentConsent)
		_, err = repo.RecordVaccination(ctx, "unknown", upd)
		assert.Equal(t, vaccination.ErrParticipationNotFound, err)
	})

	t.Run("query joins the campaign", func(t *testing.T) {
		parts, total, err := repo.QueryParticipations(ctx, vaccination.ParticipationQuery{
			Scope:      vaccination.Scope{CampaignStatuses: []string{vaccination.CampaignPlanned}},
			Pagination: core.Pagination{Page: 1, Limit: 10},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, parts, 1)
		require.NotNil(t, parts[0].Campaign)
		assert.Equal(t, "Measles", parts[0].Campaign.VaccineName)

		// the join does not leak into storage
		p, err := repo.GetParticipation(ctx, "p1")
		require.NoError(t, err)
		assert.Nil(t, p.Campaign)

		_, total, err = repo.QueryParticipations(ctx, vaccination.ParticipationQuery{
			Scope: vaccination.Scope{Restricted: true},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}

func TestParticipationRepository_pagesShareNoRecords(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	c, err := NewCampaignRepository(db).CreateCampaign(ctx, vaccination.Campaign{ID: "c1", VaccineName: "Polio", Status: vaccination.CampaignPlanned})
	require.NoError(t, err)
	repo := NewParticipationRepository(db)

	// one batch, one timestamp
	now := time.Now().UTC()
	var batch []vaccination.Participation
	for _, id := range []string{"p3", "p1", "p2", "p5", "p4"} {
		batch = append(batch, vaccination.Participation{ID: id, CampaignID: c.ID, StudentID: "s" + id, CreatedAt: now, UpdatedAt: now})
	}
	require.NoError(t, repo.InsertParticipations(ctx, batch))

	for run := 0; run < 20; run++ {
		var ids []string
		for page := 1; page <= len(batch); page++ {
			parts, total, err := repo.QueryParticipations(ctx, vaccination.ParticipationQuery{
				Pagination: core.Pagination{Page: page, Limit: 1},
				Ordering:   []core.DBOrdering{vaccination.DefaultOrdering},
			})
			require.NoError(t, err)
			assert.Equal(t, int64(len(batch)), total)
			require.Len(t, parts, 1)
			ids = append(ids, parts[0].ID)
		}
		require.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, ids)
	}
}
