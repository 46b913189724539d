package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoGateway implements Gateway and Inspector on a MongoDB database.
// The underlying *mongo.Client pools connections and is safe for concurrent use.
type MongoGateway struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB at uri, pings it, and returns a gateway bound to database dbName.
// Caller must call Close when done.
func Open(ctx context.Context, uri, dbName string) (*MongoGateway, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("db: connection string is empty")
	}
	if dbName == "" {
		return nil, errors.New("db: database name is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return &MongoGateway{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects the client. Safe to call on a nil gateway.
func (g *MongoGateway) Close(ctx context.Context) error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Disconnect(ctx)
}

// ValidID reports whether id is a 24-character hex ObjectID.
func (g *MongoGateway) ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func (g *MongoGateway) Insert(ctx context.Context, collection string, doc any) (string, error) {
	res, err := g.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", storageErr("inserting document", err)
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return fmt.Sprint(id), nil
	}
}

func (g *MongoGateway) FindAll(ctx context.Context, collection string, filter map[string]any, out any) error {
	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}
	cur, err := g.db.Collection(collection).Find(ctx, query)
	if err != nil {
		return storageErr("finding documents", err)
	}
	if err := cur.All(ctx, out); err != nil {
		return storageErr("decoding documents", err)
	}
	return nil
}

func (g *MongoGateway) FindOne(ctx context.Context, collection, id string, out any) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	err = g.db.Collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, storageErr("finding document", err)
	}
	return true, nil
}

func (g *MongoGateway) UpdateOne(ctx context.Context, collection, id string, fields map[string]any) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	res, err := g.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return 0, storageErr("updating document", err)
	}
	return res.MatchedCount, nil
}

func (g *MongoGateway) DeleteOne(ctx context.Context, collection, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}
	res, err := g.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, storageErr("deleting document", err)
	}
	return res.DeletedCount, nil
}

// Ping checks that the primary is reachable.
func (g *MongoGateway) Ping(ctx context.Context) error {
	if err := g.client.Ping(ctx, nil); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// Name returns the database name the gateway is bound to.
func (g *MongoGateway) Name() string {
	return g.db.Name()
}

// CollectionNames lists the collections in the database.
func (g *MongoGateway) CollectionNames(ctx context.Context) ([]string, error) {
	names, err := g.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, storageErr("listing collections", err)
	}
	return names, nil
}

// storageErr wraps a driver error so it matches ErrStorage while keeping the driver error in the chain.
func storageErr(op string, err error) error {
	return fmt.Errorf("db: %s: %w: %w", op, ErrStorage, err)
}
