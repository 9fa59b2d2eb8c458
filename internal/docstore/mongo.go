package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const globalsCollection = "globals"

// MongoStore is a Store backed by MongoDB. Each docstore collection maps to a
// Mongo collection of the same name; globals share one "globals" collection.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

type mongoDocument struct {
	ID        string    `bson:"_id"`
	Data      bson.Raw  `bson:"data"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (m mongoDocument) toDocument() (Document, error) {
	data, err := bson.MarshalExtJSON(m.Data, false, false)
	if err != nil {
		return Document{}, fmt.Errorf("failed to convert document %s to json: %w", m.ID, err)
	}
	return Document{
		ID:        m.ID,
		Data:      json.RawMessage(data),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}, nil
}

// NewMongoStore connects to uri and verifies the primary is reachable.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database), now: time.Now}, nil
}

// toBSON converts a JSON body into a BSON document for storage.
func toBSON(body json.RawMessage) (bson.M, error) {
	var m bson.M
	if err := bson.UnmarshalExtJSON(body, false, &m); err != nil {
		return nil, fmt.Errorf("failed to convert document to bson: %w", err)
	}
	return m, nil
}

func (s *MongoStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	filter := bson.M{}
	for k, v := range q.Where {
		if err := validField(k); err != nil {
			return nil, err
		}
		filter["data."+k] = v
	}

	opts := options.Find()
	if limit := limitOf(q); limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if q.Sort != "" {
		field, desc, err := parseSort(q.Sort)
		if err != nil {
			return nil, err
		}
		order := 1
		if desc {
			order = -1
		}
		opts.SetSort(bson.D{{Key: "data." + field, Value: order}})
	} else {
		opts.SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find documents in %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var rows []mongoDocument
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode documents in %s: %w", collection, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		doc, err := r.toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *MongoStore) findOne(ctx context.Context, collection string, filter bson.M) (*Document, error) {
	var row mongoDocument
	if err := s.db.Collection(collection).FindOne(ctx, filter).Decode(&row); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document from %s: %w", collection, err)
	}
	doc, err := row.toDocument()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *MongoStore) FindByID(ctx context.Context, collection, id string) (*Document, error) {
	return s.findOne(ctx, collection, bson.M{"_id": id})
}

func (s *MongoStore) Create(ctx context.Context, collection string, data any) (*Document, error) {
	body, err := encode(data)
	if err != nil {
		return nil, err
	}
	fields, err := toBSON(body)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	id := uuid.NewString()
	_, err = s.db.Collection(collection).InsertOne(ctx, bson.M{
		"_id":       id,
		"data":      fields,
		"createdAt": now,
		"updatedAt": now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create document in %s: %w", collection, err)
	}
	return &Document{ID: id, Data: body, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, data any) (*Document, error) {
	body, err := encode(data)
	if err != nil {
		return nil, err
	}
	fields, err := toBSON(body)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"data": fields, "updatedAt": s.now().UTC()}}
	result, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, collection, id)
}

func globalID(slug, locale string) string {
	return slug + ":" + locale
}

func (s *MongoStore) FindGlobal(ctx context.Context, slug, locale string) (*Document, error) {
	doc, err := s.findOne(ctx, globalsCollection, bson.M{"_id": globalID(slug, locale)})
	if errors.Is(err, ErrNotFound) && locale != "" {
		doc, err = s.findOne(ctx, globalsCollection, bson.M{"_id": globalID(slug, "")})
	}
	if err != nil {
		return nil, err
	}
	doc.ID = slug
	return doc, nil
}

func (s *MongoStore) UpdateGlobal(ctx context.Context, slug, locale string, data any) (*Document, error) {
	body, err := encode(data)
	if err != nil {
		return nil, err
	}
	fields, err := toBSON(body)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	update := bson.M{
		"$set":         bson.M{"data": fields, "updatedAt": now},
		"$setOnInsert": bson.M{"slug": slug, "locale": locale, "createdAt": now},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.db.Collection(globalsCollection).UpdateOne(ctx, bson.M{"_id": globalID(slug, locale)}, update, opts); err != nil {
		return nil, fmt.Errorf("failed to update global %s: %w", slug, err)
	}
	return s.FindGlobal(ctx, slug, locale)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
