package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jstackviz/jstackviz/pkg/analyze"
	"github.com/jstackviz/jstackviz/pkg/deadlock"
	"github.com/jstackviz/jstackviz/pkg/errors"
)

// Record is one stored analysis: counts for browsing plus the DOT text so a
// past graph can be re-rendered without the original dump.
type Record struct {
	ID         string    `bson:"_id" json:"id"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	Threads    int       `bson:"threads" json:"threads"`
	Deadlocked int       `bson:"deadlocked" json:"deadlocked"`
	DOT        string    `bson:"dot" json:"dot"`
}

// History stores analysis records in a mongo collection.
type History struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewHistory connects to mongo at uri and verifies the connection.
func NewHistory(ctx context.Context, uri, db string) (*History, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongo")
	}
	return &History{
		client: client,
		coll:   client.Database(db).Collection("reports"),
	}, nil
}

// Save stores one analysis.
func (h *History) Save(ctx context.Context, a *analyze.Analysis, dot string) error {
	rec := Record{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Threads:    len(a.Report.Threads),
		Deadlocked: len(deadlock.Deadlocked(a.Elements)),
		DOT:        dot,
	}
	if _, err := h.coll.InsertOne(ctx, rec); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "insert report %s", rec.ID)
	}
	return nil
}

// List returns the most recent records, newest first.
func (h *History) List(ctx context.Context, limit int64) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := h.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "find reports")
	}
	defer cur.Close(ctx)

	var records []Record
	if err := cur.All(ctx, &records); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode reports")
	}
	return records, nil
}

// Close disconnects from mongo.
func (h *History) Close(ctx context.Context) error {
	return h.client.Disconnect(ctx)
}
