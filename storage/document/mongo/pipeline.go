package mongorepos

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/document"
)

// countDoc is produced by the $count stage of the query pipelines.
type countDoc struct {
	Count int64 `bson:"count"`
}

// total reads the count of a $facet result; no match produces no count document at all.
func total(counts []countDoc) int64 {
	if len(counts) == 0 {
		return 0
	}
	return counts[0].Count
}

// keywordRegex matches values containing `keyword`, ignoring case.
func keywordRegex(keyword string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
}

func keywordMatch(keyword string, fields ...string) bson.A {
	re := keywordRegex(keyword)
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.D{{Key: f, Value: re}})
	}
	return or
}

// in is a $in operator; never null so that an empty list matches nothing.
func in(vals []string) bson.D {
	if vals == nil {
		vals = []string{}
	}
	return bson.D{{Key: "$in", Value: vals}}
}

// sortStage sorts by `orderings` (field names prefixed by `prefix`), then by _id so that pages are stable.
func sortStage(orderings []core.DBOrdering, prefix string) bson.D {
	sort := make(bson.D, 0, len(orderings)+1)
	for _, ord := range orderings {
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: prefix + ord.Field, Value: dir})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})
	return bson.D{{Key: "$sort", Value: sort}}
}

// facetStage returns both the requested page and the total number of matches.
func facetStage(orderings []core.DBOrdering, p core.Pagination) bson.D {
	records := bson.A{sortStage(orderings, "")}
	if skip := p.Skip(); skip > 0 {
		records = append(records, bson.D{{Key: "$skip", Value: int64(skip)}})
	}
	if p.Limit > 0 {
		records = append(records, bson.D{{Key: "$limit", Value: int64(p.Limit)}})
	}
	return bson.D{{Key: "$facet", Value: bson.D{
		{Key: "records", Value: records},
		{Key: "total", Value: bson.A{bson.D{{Key: "$count", Value: "count"}}}},
	}}}
}

// campaignMatch is the filter of a campaign query.
func campaignMatch(q vaccination.CampaignQuery) bson.D {
	match := bson.D{}
	if len(q.Scope.CampaignStatuses) > 0 {
		match = append(match, bson.E{Key: "status", Value: in(q.Scope.CampaignStatuses)})
	}
	if q.Scope.Restricted {
		match = append(match, bson.E{Key: "_id", Value: in(q.Scope.CampaignIDs)})
	}
	if q.Filter.Status != "" {
		// status may already be constrained by the scope
		match = append(match, bson.E{Key: "$and", Value: bson.A{bson.D{{Key: "status", Value: q.Filter.Status}}}})
	}
	if q.Filter.Keyword != "" {
		match = append(match, bson.E{Key: "$or", Value: keywordMatch(q.Filter.Keyword,
			"vaccine_name", "vaccine_type", "creator_name", "creator_email")})
	}
	return match
}

func campaignPipeline(q vaccination.CampaignQuery) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: campaignMatch(q)}},
		facetStage(q.Ordering, q.Pagination),
	}
}

// participationMatch is the part of a participation query applied before the join.
func participationMatch(q vaccination.ParticipationQuery) bson.D {
	match := bson.D{}
	if q.Scope.Restricted {
		match = append(match, bson.E{Key: "student_id", Value: in(q.Scope.StudentIDs)})
	}
	if q.Filter.CampaignID != "" {
		match = append(match, bson.E{Key: "campaign_id", Value: q.Filter.CampaignID})
	}
	if q.Filter.StudentID != "" {
		match = append(match, bson.E{Key: "$and", Value: bson.A{bson.D{{Key: "student_id", Value: q.Filter.StudentID}}}})
	}
	if q.Filter.Consent != "" {
		match = append(match, bson.E{Key: "parent_consent", Value: q.Filter.Consent})
	}
	if q.Filter.VaccinationStatus != "" {
		match = append(match, bson.E{Key: "vaccination_status", Value: q.Filter.VaccinationStatus})
	}
	return match
}

// joinedMatch is the part of a participation query applied on the joined campaign.
func joinedMatch(q vaccination.ParticipationQuery) bson.D {
	match := bson.D{}
	if len(q.Scope.CampaignStatuses) > 0 {
		match = append(match, bson.E{Key: "campaign.status", Value: in(q.Scope.CampaignStatuses)})
	}
	if q.Filter.Keyword != "" {
		match = append(match, bson.E{Key: "$or", Value: keywordMatch(q.Filter.Keyword,
			"student_name", "student_code", "campaign.vaccine_name", "campaign.vaccine_type")})
	}
	return match
}

// participationPipeline filters participations, joins their campaign, filters again on the campaign and pages.
func participationPipeline(q vaccination.ParticipationQuery) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: participationMatch(q)}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: document.CampaignCollection},
			{Key: "localField", Value: "campaign_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "campaign"},
		}}},
		{{Key: "$unwind", Value: "$campaign"}},
		{{Key: "$match", Value: joinedMatch(q)}},
		facetStage(q.Ordering, q.Pagination),
	}
}
