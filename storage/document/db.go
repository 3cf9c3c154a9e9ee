// Package document opens the document store holding vaccination campaigns and participations.
package document

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
)

// Collections
const (
	CampaignCollection      = "campaigns"
	ParticipationCollection = "participations"
)

// Open connects to the document store and waits until it answers.
func Open(ctx context.Context, conf *core.Config) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(conf.DocumentStore.URI).
		SetConnectTimeout(conf.DocumentStore.OpTimeout).
		SetServerSelectionTimeout(conf.DocumentStore.OpTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to document store")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, errors.Wrap(err, "pinging document store")
	}
	return client, client.Database(conf.DocumentStore.Name), nil
}

// Indexes returns the indexes of every collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CampaignCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("status_created_at")},
			{Keys: bson.D{{Key: "created_by", Value: 1}}, Options: options.Index().SetName("created_by")},
		},
		ParticipationCollection: {
			{
				Keys:    bson.D{{Key: "campaign_id", Value: 1}, {Key: "student_id", Value: 1}},
				Options: options.Index().SetName("campaign_student_unique").SetUnique(true),
			},
			{Keys: bson.D{{Key: "student_id", Value: 1}}, Options: options.Index().SetName("student_id")},
			{Keys: bson.D{{Key: "batch_id", Value: 1}}, Options: options.Index().SetName("batch_id").SetSparse(true)},
		},
	}
}

// EnsureIndexes creates the missing indexes; existing ones are left untouched.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range Indexes() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}
