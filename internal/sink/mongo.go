package sink

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
)

// Default database and collection names.
const (
	DefaultMongoDatabase   = "mailercloudDB"
	DefaultMongoCollection = "campaigns"
)

// inserter is the subset of *mongo.Collection the store needs.
type inserter interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoStore implements DocumentStore on a MongoDB collection.
type MongoStore struct {
	coll       inserter
	disconnect func(ctx context.Context) error
}

// NewMongo connects to uri and verifies the server is reachable.
func NewMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, eris.Wrap(err, "mongo: connect")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, eris.Wrap(err, "mongo: ping")
	}

	return &MongoStore{
		coll:       client.Database(database).Collection(collection),
		disconnect: client.Disconnect,
	}, nil
}

// Name implements DocumentStore.
func (s *MongoStore) Name() string { return "mongo" }

// InsertRecord implements DocumentStore.
func (s *MongoStore) InsertRecord(ctx context.Context, rec campaign.Record) error {
	if _, err := s.coll.InsertOne(ctx, toBSON(rec)); err != nil {
		return eris.Wrap(err, "mongo: insert one")
	}
	return nil
}

// Close implements DocumentStore.
func (s *MongoStore) Close() error {
	if s.disconnect == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.disconnect(ctx)
}

// toBSON keeps field order and turns json.Number values into BSON numbers.
func toBSON(rec campaign.Record) bson.D {
	doc := make(bson.D, 0, len(rec))
	for _, f := range rec {
		doc = append(doc, bson.E{Key: f.Name, Value: campaign.Native(f.Value)})
	}
	return doc
}
