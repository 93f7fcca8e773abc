package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps one snapshot document per aggregate in the "rooms" collection.
type MongoStore[T Aggregate] struct {
	coll  *mongo.Collection
	codec Codec[T]
}

// Local BSON mapping so the domain types carry no bson tags.
type mongoSnapshot struct {
	ID            string    `bson:"_id"`
	AggregateType string    `bson:"aggregateType"`
	Version       int       `bson:"version"`
	State         string    `bson:"state"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func NewMongoStore[T Aggregate](ctx context.Context, client *mongo.Client, dbName, aggregateType string) (*MongoStore[T], error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}
	return &MongoStore[T]{
		coll:  client.Database(dbName).Collection("rooms"),
		codec: NewCodec[T](aggregateType),
	}, nil
}

// ConnectMongo opens a client for uri.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongoDB: %w", err)
	}
	return client, nil
}

func (s *MongoStore[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	var (
		zero T
		doc  mongoSnapshot
	)
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to load %s: %w", id, err)
	}

	agg, err := s.codec.Restore(Snapshot{
		AggregateID:   doc.ID,
		AggregateType: doc.AggregateType,
		Version:       doc.Version,
		State:         []byte(doc.State),
		CreatedAt:     doc.UpdatedAt,
	})
	if err != nil {
		return zero, false, err
	}
	return agg, true, nil
}

func (s *MongoStore[T]) Save(ctx context.Context, agg T) error {
	snap, err := s.codec.Snapshot(agg)
	if err != nil {
		return err
	}
	doc := mongoSnapshot{
		ID:            snap.AggregateID,
		AggregateType: snap.AggregateType,
		Version:       snap.Version,
		State:         string(snap.State),
		UpdatedAt:     snap.CreatedAt,
	}

	// The filter only matches older or equal versions; with upsert a newer
	// stored document turns into a duplicate key error on _id.
	filter := bson.M{"_id": doc.ID, "version": bson.M{"$lte": doc.Version}}
	_, err = s.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s version %d", ErrStaleVersion, doc.ID, doc.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", doc.ID, err)
	}
	return nil
}
