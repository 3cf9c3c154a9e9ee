package mongorepos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

func Test_keywordRegex(t *testing.T) {
	assert.Equal(t, primitive.Regex{Pattern: `a\.b\(c`, Options: "i"}, keywordRegex("a.b(c"))
}

func Test_total(t *testing.T) {
	assert.Equal(t, int64(0), total(nil))
	assert.Equal(t, int64(7), total([]countDoc{{Count: 7}}))
}

func Test_in(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "$in", Value: []string{}}}, in(nil))
	assert.Equal(t, bson.D{{Key: "$in", Value: []string{"a"}}}, in([]string{"a"}))
}

func Test_facetStage(t *testing.T) {
	orderings := []core.DBOrdering{{Field: "vaccine_name", Ascending: true}, {Field: "created_at"}}
	sort := bson.D{{Key: "$sort", Value: bson.D{
		{Key: "vaccine_name", Value: 1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: 1},
	}}}
	count := bson.A{bson.D{{Key: "$count", Value: "count"}}}

	got := facetStage(orderings, core.Pagination{Page: 3, Limit: 10})
	assert.Equal(t, bson.D{{Key: "$facet", Value: bson.D{
		{Key: "records", Value: bson.A{sort, bson.D{{Key: "$skip", Value: int64(20)}}, bson.D{{Key: "$limit", Value: int64(10)}}}},
		{Key: "total", Value: count},
	}}}, got)

	got = facetStage(orderings, core.Pagination{Page: 1, Limit: 10})
	assert.Equal(t, bson.D{{Key: "$facet", Value: bson.D{
		{Key: "records", Value: bson.A{sort, bson.D{{Key: "$limit", Value: int64(10)}}}},
		{Key: "total", Value: count},
	}}}, got)
}

func Test_campaignMatch(t *testing.T) {
	tests := []struct {
		name string
		q    vaccination.CampaignQuery
		want bson.D
	}{
		{name: "everything", want: bson.D{}},
		{
			name: "nurse with status",
			q: vaccination.CampaignQuery{
				Filter: vaccination.CampaignFilter{Status: vaccination.CampaignCompleted},
				Scope:  vaccination.Scope{CampaignStatuses: []string{vaccination.CampaignPlanned, vaccination.CampaignOngoing}},
			},
			want: bson.D{
				{Key: "status", Value: in([]string{vaccination.CampaignPlanned, vaccination.CampaignOngoing})},
				{Key: "$and", Value: bson.A{bson.D{{Key: "status", Value: vaccination.CampaignCompleted}}}},
			},
		},
		{
			name: "parent with keyword",
			q: vaccination.CampaignQuery{
				Filter: vaccination.CampaignFilter{Keyword: "mea"},
				Scope:  vaccination.Scope{Restricted: true},
			},
			want: bson.D{
				{Key: "_id", Value: in(nil)},
				{Key: "$or", Value: bson.A{
					bson.D{{Key: "vaccine_name", Value: keywordRegex("mea")}},
					bson.D{{Key: "vaccine_type", Value: keywordRegex("mea")}},
					bson.D{{Key: "creator_name", Value: keywordRegex("mea")}},
					bson.D{{Key: "creator_email", Value: keywordRegex("mea")}},
				}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, campaignMatch(tt.q))
		})
	}
}

func Test_participationPipeline(t *testing.T) {
	q := vaccination.ParticipationQuery{
		Filter: vaccination.ParticipationFilter{
			CampaignID: "c1",
			StudentID:  "s1",
			Keyword:    "sam",
			Consent:    vaccination.ConsentApproved,
		},
		Scope: vaccination.Scope{
			CampaignStatuses: []string{vaccination.CampaignPlanned},
			Restricted:       true,
			StudentIDs:       []string{"s1", "s2"},
		},
		Ordering:   []core.DBOrdering{{Field: "student_name", Ascending: true}},
		Pagination: core.Pagination{Page: 1, Limit: 5},
	}

	assert.Equal(t, bson.D{
		{Key: "student_id", Value: in([]string{"s1", "s2"})},
		{Key: "campaign_id", Value: "c1"},
		{Key: "$and", Value: bson.A{bson.D{{Key: "student_id", Value: "s1"}}}},
		{Key: "parent_consent", Value: vaccination.ConsentApproved},
	}, participationMatch(q))

	assert.Equal(t, bson.D{
		{Key: "campaign.status", Value: in([]string{vaccination.CampaignPlanned})},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "student_name", Value: keywordRegex("sam")}},
			bson.D{{Key: "student_code", Value: keywordRegex("sam")}},
			bson.D{{Key: "campaign.vaccine_name", Value: keywordRegex("sam")}},
			bson.D{{Key: "campaign.vaccine_type", Value: keywordRegex("sam")}},
		}},
	}, joinedMatch(q))

	pipeline := participationPipeline(q)
	if assert.Len(t, pipeline, 5) {
		assert.Equal(t, "$match", pipeline[0][0].Key)
		assert.Equal(t, "$lookup", pipeline[1][0].Key)
		assert.Equal(t, bson.D{{Key: "$unwind", Value: "$campaign"}}, pipeline[2])
		assert.Equal(t, "$match", pipeline[3][0].Key)
		assert.Equal(t, "$facet", pipeline[4][0].Key)
	}
}

func Test_guardFilters(t *testing.T) {
	notCompleted := bson.E{Key: "vaccination_status", Value: bson.D{{Key: "$ne", Value: vaccination.VaccinationCompleted}}}

	assert.Equal(t, bson.D{{Key: "_id", Value: "p1"}, notCompleted}, consentableFilter("p1"))
	assert.Equal(t, bson.D{
		{Key: "_id", Value: "p1"},
		{Key: "parent_consent", Value: vaccination.ConsentApproved},
		notCompleted,
	}, recordableFilter("p1"))
}
