package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediahub/pkg/domain"
)

type mediaDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UserID        string             `bson:"userId"`
	Title         string             `bson:"title"`
	Description   string             `bson:"description,omitempty"`
	ThumbnailURL  string             `bson:"thumbnailUrl"`
	SourceURL     string             `bson:"sourceUrl"`
	MediaType     string             `bson:"mediaType"`
	Duration      string             `bson:"duration,omitempty"`
	Views         int64              `bson:"views"`
	CreatorName   string             `bson:"creatorName"`
	CreatorAvatar string             `bson:"creatorAvatar"`
	Tags          []string           `bson:"tags"`
	IsPremium     bool               `bson:"isPremium"`
	Price         *float64           `bson:"price,omitempty"`
	UploadedAt    string             `bson:"uploadedAt"`
	FileName      string             `bson:"fileName,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func toDocument(m domain.MediaItem) mediaDocument {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return mediaDocument{
		UserID:        m.UserID,
		Title:         m.Title,
		Description:   m.Description,
		ThumbnailURL:  m.ThumbnailURL,
		SourceURL:     m.SourceURL,
		MediaType:     string(m.MediaType),
		Duration:      m.Duration,
		Views:         m.Views,
		CreatorName:   m.CreatorName,
		CreatorAvatar: m.CreatorAvatar,
		Tags:          tags,
		IsPremium:     m.IsPremium,
		Price:         m.Price,
		UploadedAt:    m.UploadedAt,
		FileName:      m.FileName,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (d mediaDocument) toDomain() domain.MediaItem {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.MediaItem{
		ID:            d.ID.Hex(),
		UserID:        d.UserID,
		Title:         d.Title,
		Description:   d.Description,
		ThumbnailURL:  d.ThumbnailURL,
		SourceURL:     d.SourceURL,
		MediaType:     domain.MediaType(d.MediaType),
		Duration:      d.Duration,
		Views:         d.Views,
		CreatorName:   d.CreatorName,
		CreatorAvatar: d.CreatorAvatar,
		Tags:          tags,
		IsPremium:     d.IsPremium,
		Price:         d.Price,
		UploadedAt:    d.UploadedAt,
		FileName:      d.FileName,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
}

// NewMongoStore connects, pings and ensures the listing indexes.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	col := client.Database(database).Collection(collection)
	_, err = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_desc")},
		{Keys: bson.D{{Key: "mediaType", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("type_created_desc")},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return &MongoStore{client: client, col: col}, nil
}

func (s *MongoStore) ListMedia(ctx context.Context) ([]domain.MediaItem, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoStore) ListByType(ctx context.Context, mediaType domain.MediaType) ([]domain.MediaItem, error) {
	return s.find(ctx, bson.M{"mediaType": string(mediaType)})
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]domain.MediaItem, error) {
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []domain.MediaItem{}
	for cur.Next(ctx) {
		var doc mediaDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cur.Err()
}

func (s *MongoStore) GetMedia(ctx context.Context, id string) (domain.MediaItem, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.MediaItem{}, false, nil
	}
	var doc mediaDocument
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.MediaItem{}, false, nil
	}
	if err != nil {
		return domain.MediaItem{}, false, err
	}
	return doc.toDomain(), true, nil
}

func (s *MongoStore) CreateMedia(ctx context.Context, item domain.MediaItem) (domain.MediaItem, error) {
	doc := stampNew(toDocument(item))
	res, err := s.col.InsertOne(ctx, doc)
	if err != nil {
		return domain.MediaItem{}, err
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (s *MongoStore) SaveMedia(ctx context.Context, item domain.MediaItem) error {
	oid, err := primitive.ObjectIDFromHex(item.ID)
	if err != nil {
		return fmt.Errorf("invalid media id %q", item.ID)
	}
	doc := toDocument(item)
	doc.ID = oid
	_, err = s.col.ReplaceOne(ctx, bson.M{"_id": oid}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) DeleteMedia(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// InsertMany performs an unordered insert; documents that fail are skipped.
func (s *MongoStore) InsertMany(ctx context.Context, items []domain.MediaItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	docs := make([]any, 0, len(items))
	for _, item := range items {
		docs = append(docs, stampNew(toDocument(item)))
	}
	res, err := s.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(res.InsertedIDs), nil
	}
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		return len(items) - len(bulkErr.WriteErrors), nil
	}
	return 0, err
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func stampNew(doc mediaDocument) mediaDocument {
	doc.ID = primitive.NilObjectID
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	return doc
}
