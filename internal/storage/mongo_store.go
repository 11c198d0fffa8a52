package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"reportstudio/internal/config"
	"reportstudio/internal/domain"
)

// MongoStore implements domain.DocumentStore and domain.HistoryStore on
// MongoDB. The tree is kept as a JSON string: block payloads are a sealed
// interface that bson cannot decode without the type tag dispatch.
type MongoStore struct {
	client       *mongo.Client
	documents    *mongo.Collection
	history      *mongo.Collection
	historyDepth int
}

type mongoDocument struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	TreeJSON  string    `bson:"tree_json"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoEntry struct {
	Label        string    `bson:"label"`
	SnapshotJSON string    `bson:"snapshot_json"`
	RecordedAt   time.Time `bson:"recorded_at"`
}

type mongoHistory struct {
	DocID  string       `bson:"_id"`
	Past   []mongoEntry `bson:"past"`
	Future []mongoEntry `bson:"future"`
}

// OpenMongo connects to MongoDB using the storage configuration.
func OpenMongo(ctx context.Context, c config.StorageConfig, historyDepth int) (*MongoStore, error) {
	uri, database := mongoURI(c)
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(database)
	return &MongoStore{
		client:       client,
		documents:    db.Collection("documents"),
		history:      db.Collection("history"),
		historyDepth: historyDepth,
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Put(ctx context.Context, doc *domain.Document) error {
	rec, err := toMongoDocument(doc, time.Now().UTC())
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"title":      rec.Title,
			"tree_json":  rec.TreeJSON,
			"version":    rec.Version,
			"updated_at": rec.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": rec.CreatedAt},
	}
	_, err = s.documents.UpdateOne(ctx, bson.M{"_id": rec.ID}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	var rec mongoDocument
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return fromMongoDocument(rec)
}

func (s *MongoStore) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	opts := options.Find().
		SetProjection(bson.M{"tree_json": 0}).
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.documents.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.DocumentInfo
	for cursor.Next(ctx) {
		var rec mongoDocument
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, domain.DocumentInfo{
			ID: rec.ID, Title: rec.Title, Version: rec.Version, UpdatedAt: rec.UpdatedAt.UTC(),
		})
	}
	return out, cursor.Err()
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.documents.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	if _, err := s.history.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete history of %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) SaveHistory(ctx context.Context, docID string, past, future []domain.HistoryEntry) error {
	rec, err := toMongoHistory(docID, past, future, s.historyDepth)
	if err != nil {
		return err
	}
	_, err = s.history.ReplaceOne(ctx, bson.M{"_id": docID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save history of %s: %w", docID, err)
	}
	return nil
}

func (s *MongoStore) LoadHistory(ctx context.Context, docID string) (past, future []domain.HistoryEntry, err error) {
	var rec mongoHistory
	err = s.history.FindOne(ctx, bson.M{"_id": docID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load history of %s: %w", docID, err)
	}
	if past, err = fromMongoEntries(rec.Past); err != nil {
		return nil, nil, err
	}
	if future, err = fromMongoEntries(rec.Future); err != nil {
		return nil, nil, err
	}
	return past, future, nil
}

// ── conversions ────────────────────────────────────────────

func toMongoDocument(doc *domain.Document, now time.Time) (mongoDocument, error) {
	treeJSON, err := json.Marshal(doc.Tree)
	if err != nil {
		return mongoDocument{}, fmt.Errorf("encode tree: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	return mongoDocument{
		ID:        doc.ID,
		Title:     doc.Title,
		TreeJSON:  string(treeJSON),
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func fromMongoDocument(rec mongoDocument) (*domain.Document, error) {
	doc := &domain.Document{
		ID:        rec.ID,
		Title:     rec.Title,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(rec.TreeJSON), &doc.Tree); err != nil {
		return nil, fmt.Errorf("decode tree of %s: %w", rec.ID, err)
	}
	return doc, nil
}

func toMongoHistory(docID string, past, future []domain.HistoryEntry, depth int) (mongoHistory, error) {
	if depth > 0 && len(past) > depth {
		past = past[len(past)-depth:]
	}
	rec := mongoHistory{DocID: docID, Past: []mongoEntry{}, Future: []mongoEntry{}}
	for _, list := range []struct {
		in  []domain.HistoryEntry
		out *[]mongoEntry
	}{{past, &rec.Past}, {future, &rec.Future}} {
		for _, e := range list.in {
			snapshot, err := json.Marshal(e.Tree)
			if err != nil {
				return mongoHistory{}, fmt.Errorf("encode snapshot %q: %w", e.Label, err)
			}
			*list.out = append(*list.out, mongoEntry{Label: e.Label, SnapshotJSON: string(snapshot), RecordedAt: e.RecordedAt})
		}
	}
	return rec, nil
}

func fromMongoEntries(in []mongoEntry) ([]domain.HistoryEntry, error) {
	var out []domain.HistoryEntry
	for _, m := range in {
		e := domain.HistoryEntry{Label: m.Label, RecordedAt: m.RecordedAt.UTC()}
		if err := json.Unmarshal([]byte(m.SnapshotJSON), &e.Tree); err != nil {
			return nil, fmt.Errorf("decode snapshot %q: %w", m.Label, err)
		}
		out = append(out, e)
	}
	return out, nil
}
