package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
)

const postsCollection = "posts"

// MongoStore is the primary document tier of the cascade.
type MongoStore struct {
	client *mongo.Client
	posts  *mongo.Collection
	logger logger.Logger
}

// NewMongoStore connects, verifies connectivity and ensures the unique
// identity index.
func NewMongoStore(ctx context.Context, uri, database string, log logger.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &MongoStore{
		client: client,
		posts:  client.Database(database).Collection(postsCollection),
		logger: log,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identity_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create identity index: %w", err)
	}
	return nil
}

// Name implements Backend.
func (s *MongoStore) Name() string { return "mongodb" }

// Ping implements Backend.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// mongoPost is the document shape stored in the posts collection.
type mongoPost struct {
	ID            string     `bson:"_id"`
	IdentityKey   string     `bson:"identity_key"`
	Author        string     `bson:"author"`
	Company       string     `bson:"company,omitempty"`
	Text          string     `bson:"text"`
	PublishedAt   *time.Time `bson:"published_at,omitempty"`
	SourceKeyword string     `bson:"source_keyword,omitempty"`
	CollectedAt   time.Time  `bson:"collected_at"`
	Permalink     string     `bson:"permalink,omitempty"`
	ContentHash   string     `bson:"content_hash"`
	LegalScore    float64    `bson:"legal_score"`
	RecruitScore  float64    `bson:"recruit_score"`
	Professions   []string   `bson:"professions,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
}

// Write implements Backend. Each post is upserted on its identity key with
// $setOnInsert only, so an existing document is never modified.
func (s *MongoStore) Write(ctx context.Context, posts []*domain.PersistedPost) (int, error) {
	inserted := 0
	for _, post := range posts {
		doc := mongoPost{
			ID:            post.ID,
			IdentityKey:   identityOf(post).String(),
			Author:        post.Author,
			Company:       post.Company,
			Text:          post.Text,
			PublishedAt:   post.PublishedAt,
			SourceKeyword: post.SourceKeyword,
			CollectedAt:   post.CollectedAt,
			Permalink:     post.CanonicalPermalink,
			ContentHash:   post.ContentHash,
			LegalScore:    post.LegalScore,
			RecruitScore:  post.RecruitScore,
			Professions:   post.Professions,
			CreatedAt:     post.CreatedAt,
		}

		res, err := s.posts.UpdateOne(ctx,
			bson.M{"identity_key": doc.IdentityKey},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return inserted, fmt.Errorf("upsert post %s: %w", post.ID, err)
		}
		inserted += int(res.UpsertedCount)
	}
	return inserted, nil
}
