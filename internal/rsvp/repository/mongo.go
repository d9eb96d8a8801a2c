package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/undangan/rsvp-service/internal/database"
	"github.com/undangan/rsvp-service/internal/rsvp"
)

// HandleSource hands out the shared store handle. *database.Provider
// satisfies it.
type HandleSource interface {
	Acquire(ctx context.Context) (*database.Handle, error)
}

// MongoRepo stores records in a MongoDB collection. The handle is acquired
// before every operation so that connection failures surface on the call
// that needed the connection.
type MongoRepo struct {
	handles    HandleSource
	collection string
}

func NewMongoRepo(handles HandleSource, collection string) *MongoRepo {
	return &MongoRepo{handles: handles, collection: collection}
}

func (m *MongoRepo) col(ctx context.Context) (*mongo.Collection, error) {
	h, err := m.handles.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return h.Collection(m.collection), nil
}

// EnsureIndexes creates the descending timestamp index the live query sorts on.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	col, err := m.col(ctx)
	if err != nil {
		return err
	}
	idx := mongo.IndexModel{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("timestamp_desc")}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("create timestamp index: %w", err)
	}
	return nil
}

func (m *MongoRepo) Create(ctx context.Context, rec *rsvp.Record) (string, error) {
	col, err := m.col(ctx)
	if err != nil {
		return "", err
	}
	doc := bson.M{
		"name":       rec.Name,
		"message":    rec.Message,
		"attendance": string(rec.Attendance),
		"timestamp":  rec.Timestamp,
	}
	res, err := col.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert rsvp: %w", err)
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		rec.ID = id.Hex()
	default:
		rec.ID = fmt.Sprint(id)
	}
	return rec.ID, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]rsvp.Record, error) {
	col, err := m.col(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cur, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find rsvps: %w", err)
	}
	defer cur.Close(ctx)
	out := []rsvp.Record{}
	for cur.Next(ctx) {
		var r rsvp.Record
		if err := cur.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode rsvp: %w", err)
		}
		out = append(out, r)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch opens a change stream over inserts into the collection. The caller
// must close the returned stream.
func (m *MongoRepo) Watch(ctx context.Context) (*mongo.ChangeStream, error) {
	col, err := m.col(ctx)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}}}
	cs, err := col.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", m.collection, err)
	}
	return cs, nil
}
