package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

type mongoDoc struct {
	Key     string `bson:"_id"`
	Payload string `bson:"payload"`
	Rev     int64  `bson:"rev"`
}

// MongoStore keeps one document per envelope key; the revision filter on
// UpdateOne gives compare-and-swap natively.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = "inventory_kv"
	}
	return &MongoStore{coll: db.Collection(collection)}
}

func (s *MongoStore) Get(ctx context.Context, key string) (string, int64, bool, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", 0, false, nil
		}
		return "", 0, false, err
	}
	return doc.Payload, doc.Rev, true, nil
}

func (s *MongoStore) Put(ctx context.Context, key string, payload string, expectRev int64) (int64, error) {
	next := expectRev + 1
	if expectRev == 0 {
		_, err := s.coll.InsertOne(ctx, mongoDoc{Key: key, Payload: payload, Rev: next})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return 0, &models.ConflictError{Key: key}
			}
			return 0, err
		}
		return next, nil
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": key, "rev": expectRev},
		bson.M{"$set": bson.M{"payload": payload, "rev": next}},
	)
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		return 0, &models.ConflictError{Key: key}
	}
	return next, nil
}

func (s *MongoStore) Del(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
