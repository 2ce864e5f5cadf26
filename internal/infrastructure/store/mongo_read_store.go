package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/example/grocery-shop/internal/readmodel"
)

// MongoReadStore implements ReadStoreInterface with one MongoDB collection
// per read model collection. Documents are stored as {_id, data}.
type MongoReadStore struct {
	db *mongo.Database
	mu sync.Mutex // serialises Update read-modify-write cycles
}

type mongoDocument struct {
	ID   string   `bson:"_id"`
	Data bson.Raw `bson:"data"`
}

// ConnectMongo connects to MongoDB and verifies the connection
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Println("[ReadStore] Connected to MongoDB")
	return client, nil
}

// NewMongoReadStore creates a read store on the given database
func NewMongoReadStore(db *mongo.Database) *MongoReadStore {
	return &MongoReadStore{db: db}
}

// Set stores a read model
func (rs *MongoReadStore) Set(collection, id string, data any) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return rs.replace(ctx, collection, id, data)
}

func (rs *MongoReadStore) replace(ctx context.Context, collection, id string, data any) error {
	doc, err := toBSON(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}
	_, err = rs.db.Collection(collection).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "_id", Value: id}, {Key: "data", Value: doc}},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to replace %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get retrieves a read model by id
func (rs *MongoReadStore) Get(collection, id string) (any, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return rs.get(ctx, collection, id)
}

func (rs *MongoReadStore) get(ctx context.Context, collection, id string) (any, bool, error) {
	var doc mongoDocument
	err := rs.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	model, err := fromBSON(collection, doc.Data)
	if err != nil {
		return nil, false, err
	}
	return model, true, nil
}

// GetAll retrieves all items in a collection ordered by id
func (rs *MongoReadStore) GetAll(collection string) ([]any, error) {
	return rs.find(collection, bson.D{})
}

// FindBy returns the items whose top-level field equals value
func (rs *MongoReadStore) FindBy(collection, field, value string) ([]any, error) {
	return rs.find(collection, bson.D{{Key: "data." + field, Value: value}})
}

func (rs *MongoReadStore) find(collection string, filter bson.D) ([]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	cursor, err := rs.db.Collection(collection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []any{}
	for cursor.Next(ctx) {
		var doc mongoDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		model, err := fromBSON(collection, doc.Data)
		if err != nil {
			return nil, err
		}
		items = append(items, model)
	}
	return items, cursor.Err()
}

// Delete removes a read model
func (rs *MongoReadStore) Delete(collection, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := rs.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

// Update modifies a read model. It reports false when the id is unknown.
func (rs *MongoReadStore) Update(collection, id string, updateFn func(current any) any) (bool, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	current, ok, err := rs.get(ctx, collection, id)
	if err != nil || !ok {
		return false, err
	}
	if err := rs.replace(ctx, collection, id, updateFn(current)); err != nil {
		return false, err
	}
	return true, nil
}

// toBSON goes through JSON so the stored field names match the json tags of the read models
func toBSON(data any) (bson.D, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromBSON(collection string, raw bson.Raw) (any, error) {
	doc, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	return readmodel.Decode(collection, doc)
}
