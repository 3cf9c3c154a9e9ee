package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/document"
)

type campaignRepository struct {
	coll *mongo.Collection
}

var _ vaccination.CampaignRepository = (*campaignRepository)(nil)

func NewCampaignRepository(db *mongo.Database) vaccination.CampaignRepository {
	return &campaignRepository{coll: db.Collection(document.CampaignCollection)}
}

func (repo *campaignRepository) CreateCampaign(ctx context.Context, c vaccination.Campaign) (vaccination.Campaign, error) {
	if _, err := repo.coll.InsertOne(ctx, newCampaignDoc(c)); err != nil {
		return vaccination.Campaign{}, errors.Wrap(err, "inserting campaign")
	}
	return c, nil
}

func (repo *campaignRepository) GetCampaign(ctx context.Context, id string) (vaccination.Campaign, error) {
	var doc campaignDoc
	if err := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return vaccination.Campaign{}, vaccination.ErrCampaignNotFound
		}
		return vaccination.Campaign{}, errors.Wrap(err, "finding campaign")
	}
	return doc.toCampaign(), nil
}

func (repo *campaignRepository) UpdateCampaign(ctx context.Context, c vaccination.Campaign) (vaccination.Campaign, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: c.ID}}, newCampaignDoc(c))
	if err != nil {
		return vaccination.Campaign{}, errors.Wrap(err, "replacing campaign")
	}
	if res.MatchedCount == 0 {
		return vaccination.Campaign{}, vaccination.ErrCampaignNotFound
	}
	return c, nil
}

func (repo *campaignRepository) QueryCampaigns(ctx context.Context, q vaccination.CampaignQuery) ([]vaccination.Campaign, int64, error) {
	cur, err := repo.coll.Aggregate(ctx, campaignPipeline(q))
	if err != nil {
		return nil, 0, errors.Wrap(err, "aggregating campaigns")
	}
	defer func() { _ = cur.Close(ctx) }()

	var res []struct {
		Records []campaignDoc `bson:"records"`
		Total   []countDoc    `bson:"total"`
	}
	if err := cur.All(ctx, &res); err != nil {
		return nil, 0, errors.Wrap(err, "decoding campaigns")
	}
	if len(res) == 0 {
		return []vaccination.Campaign{}, 0, nil
	}

	campaigns := make([]vaccination.Campaign, 0, len(res[0].Records))
	for _, doc := range res[0].Records {
		campaigns = append(campaigns, doc.toCampaign())
	}
	return campaigns, total(res[0].Total), nil
}
