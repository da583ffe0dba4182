// Package audit keeps a trail of posting attempts in MongoDB. Entries are
// written best-effort after the posting outcome is known; the trail is an
// operational record, not part of the ledger's atomic unit.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abkawan/card-ledger/internal/service"
)

// Trail stores posting audit entries in a Mongo collection.
type Trail struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type entry struct {
	ID                    string `bson:"_id"`
	service.PostingRecord `bson:",inline"`
}

// NewTrail connects to MongoDB and prepares the postings collection.
func NewTrail(uri, dbName string) (*Trail, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	collection := client.Database(dbName).Collection("postings")

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "card_number", Value: 1}}},
		{Keys: bson.D{{Key: "recorded_at", Value: -1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &Trail{client: client, collection: collection}, nil
}

// Close disconnects from MongoDB.
func (t *Trail) Close(ctx context.Context) error {
	return t.client.Disconnect(ctx)
}

// RecordPosting inserts one audit entry.
func (t *Trail) RecordPosting(ctx context.Context, rec service.PostingRecord) error {
	doc := entry{ID: uuid.New().String(), PostingRecord: rec}
	if _, err := t.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// RecentPostings returns the newest audit entries, most recent first.
func (t *Trail) RecentPostings(ctx context.Context, limit int) ([]service.PostingRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := t.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	records := make([]service.PostingRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.PostingRecord)
	}
	return records, nil
}
