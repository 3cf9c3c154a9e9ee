package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/document"
)

type participationRepository struct {
	coll *mongo.Collection
}

var _ vaccination.ParticipationRepository = (*participationRepository)(nil)

func NewParticipationRepository(db *mongo.Database) vaccination.ParticipationRepository {
	return &participationRepository{coll: db.Collection(document.ParticipationCollection)}
}

// InsertParticipations inserts the batch in order. On any failure the documents of the batch that made it
// are deleted again, so that the batch is applied all or nothing.
func (repo *participationRepository) InsertParticipations(ctx context.Context, parts []vaccination.Participation) error {
	if len(parts) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		docs = append(docs, newParticipationDoc(p))
	}

	_, err := repo.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}

	if batchID := parts[0].BatchID; batchID != "" {
		if _, delErr := repo.coll.DeleteMany(ctx, bson.D{{Key: "batch_id", Value: batchID}}); delErr != nil {
			return errors.Wrapf(delErr, "rolling back batch %s after: %v", batchID, err)
		}
	}
	if mongo.IsDuplicateKeyError(err) {
		return vaccination.ErrParticipationExists
	}
	return errors.Wrap(err, "inserting participations")
}

func (repo *participationRepository) ExistingStudents(ctx context.Context, campaignID string, studentIDs []string) ([]string, error) {
	filter := bson.D{
		{Key: "campaign_id", Value: campaignID},
		{Key: "student_id", Value: in(studentIDs)},
	}
	vals, err := repo.coll.Distinct(ctx, "student_id", filter)
	if err != nil {
		return nil, errors.Wrap(err, "finding existing participations")
	}
	return toStrings(vals), nil
}

func (repo *participationRepository) GetParticipation(ctx context.Context, id string) (vaccination.Participation, error) {
	var doc participationDoc
	if err := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return vaccination.Participation{}, vaccination.ErrParticipationNotFound
		}
		return vaccination.Participation{}, errors.Wrap(err, "finding participation")
	}
	return doc.toParticipation(), nil
}

func (repo *participationRepository) findOneAndSet(ctx context.Context, filter, set bson.D) (vaccination.Participation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc participationDoc
	err := repo.coll.FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	if err != nil {
		return vaccination.Participation{}, err
	}
	return doc.toParticipation(), nil
}

func (repo *participationRepository) SetConsent(ctx context.Context, id string, upd vaccination.ConsentUpdate) (vaccination.Participation, error) {
	set := bson.D{
		{Key: "parent_consent", Value: upd.Consent},
		{Key: "consent_note", Value: upd.Note},
		{Key: "consent_by", Value: upd.By},
		{Key: "consent_at", Value: upd.At},
		{Key: "updated_at", Value: upd.UpdatedAt},
	}
	part, err := repo.findOneAndSet(ctx, consentableFilter(id), set)
	if err == nil {
		return part, nil
	}
	if err != mongo.ErrNoDocuments {
		return vaccination.Participation{}, errors.Wrap(err, "updating consent")
	}
	return vaccination.Participation{}, repo.guardFailed(ctx, id, vaccination.ErrConsentLocked)
}

// guardFailed tells a missing participation from one whose guard did not hold.
func (repo *participationRepository) guardFailed(ctx context.Context, id string, guardErr error) error {
	n, err := repo.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrap(err, "counting participations")
	}
	if n == 0 {
		return vaccination.ErrParticipationNotFound
	}
	return guardErr
}

// consentableFilter matches the participation only while its consent may change.
func consentableFilter(id string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "vaccination_status", Value: bson.D{{Key: "$ne", Value: vaccination.VaccinationCompleted}}},
	}
}

// recordableFilter matches the participation only while a vaccination may be recorded on it.
func recordableFilter(id string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "parent_consent", Value: vaccination.ConsentApproved},
		{Key: "vaccination_status", Value: bson.D{{Key: "$ne", Value: vaccination.VaccinationCompleted}}},
	}
}

func vaccinationSet(upd vaccination.VaccinationUpdate) bson.D {
	set := bson.D{
		{Key: "vaccination_status", Value: upd.Status},
		{Key: "vaccination_note", Value: upd.Note},
		{Key: "nurse_id", Value: upd.NurseID},
		{Key: "updated_at", Value: upd.UpdatedAt},
	}
	if upd.Date != nil {
		set = append(set, bson.E{Key: "vaccination_date", Value: *upd.Date})
	}
	return set
}

func (repo *participationRepository) RecordVaccination(ctx context.Context, id string, upd vaccination.VaccinationUpdate) (vaccination.Participation, error) {
	part, err := repo.findOneAndSet(ctx, recordableFilter(id), vaccinationSet(upd))
	if err == nil {
		return part, nil
	}
	if err != mongo.ErrNoDocuments {
		return vaccination.Participation{}, errors.Wrap(err, "recording vaccination")
	}

	return vaccination.Participation{}, repo.guardFailed(ctx, id, vaccination.ErrNotRecordable)
}

func (repo *participationRepository) QueryParticipations(ctx context.Context, q vaccination.ParticipationQuery) ([]vaccination.Participation, int64, error) {
	cur, err := repo.coll.Aggregate(ctx, participationPipeline(q))
	if err != nil {
		return nil, 0, errors.Wrap(err, "aggregating participations")
	}
	defer func() { _ = cur.Close(ctx) }()

	var res []struct {
		Records []participationDoc `bson:"records"`
		Total   []countDoc         `bson:"total"`
	}
	if err := cur.All(ctx, &res); err != nil {
		return nil, 0, errors.Wrap(err, "decoding participations")
	}
	if len(res) == 0 {
		return []vaccination.Participation{}, 0, nil
	}

	parts := make([]vaccination.Participation, 0, len(res[0].Records))
	for _, doc := range res[0].Records {
		parts = append(parts, doc.toParticipation())
	}
	return parts, total(res[0].Total), nil
}

func (repo *participationRepository) CampaignIDsForStudents(ctx context.Context, studentIDs []string) ([]string, error) {
	vals, err := repo.coll.Distinct(ctx, "campaign_id", bson.D{{Key: "student_id", Value: in(studentIDs)}})
	if err != nil {
		return nil, errors.Wrap(err, "finding campaigns of students")
	}
	return toStrings(vals), nil
}

func toStrings(vals []interface{}) []string {
	strs := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			strs = append(strs, s)
		}
	}
	return strs
}
