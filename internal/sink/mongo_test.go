package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeCollection struct {
	docs []any
	err  error
}

func (f *fakeCollection) InsertOne(_ context.Context, doc any, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, doc)
	return &mongo.InsertOneResult{InsertedID: len(f.docs)}, nil
}

func TestToBSON_OrderAndNumbers(t *testing.T) {
	rec := testRecords(t, `{"id":"c1","name":"Spring Promo","recepiant":{"lists":[{"id":5}]},"report_summary":{"sent":200,"open_percentage":40.5,"clicks":20}}`)[0]

	doc := toBSON(rec)
	require.Len(t, doc, len(rec))
	assert.Equal(t, rec.Names()[0], doc[0].Key)
	assert.Equal(t, "Campaign ID", doc[len(doc)-1].Key)

	m := doc.Map()
	assert.Equal(t, "Spring Promo", m["Campaign Name"])
	assert.Equal(t, int64(200), m["Sent"])
	assert.Equal(t, 40.5, m["Open %"])
	assert.Equal(t, 10.0, m["Click %"])
	assert.Equal(t, []any{map[string]any{"id": int64(5)}}, m["Lists"])

	_, err := bson.Marshal(doc)
	require.NoError(t, err)
}

func TestMongoStore_InsertRecord(t *testing.T) {
	coll := &fakeCollection{}
	s := &MongoStore{coll: coll}

	res, err := WriteDocuments(context.Background(), s, testRecords(t, `{"id":"c1"}`, `{"id":"c2"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	require.Len(t, coll.docs, 2)
	assert.IsType(t, bson.D{}, coll.docs[0])
	assert.NoError(t, s.Close())
}

func TestMongoStore_InsertError(t *testing.T) {
	s := &MongoStore{coll: &fakeCollection{err: errors.New("E11000 duplicate key")}}

	res, err := WriteDocuments(context.Background(), s, testRecords(t, `{"id":"c1"}`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0].Error(), "E11000")
	assert.Equal(t, "mongo", s.Name())
}
