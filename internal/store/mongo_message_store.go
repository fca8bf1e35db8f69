package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RUSHIKESH1209/Nexable/internal/config"
	"github.com/RUSHIKESH1209/Nexable/internal/domain"
)

const messagesCollection = "messages"

// MongoMessageStore implements MessageStore on MongoDB.
type MongoMessageStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoMessageStore connects to MongoDB and verifies the connection.
func NewMongoMessageStore(ctx context.Context, cfg config.MongoConfig) (*MongoMessageStore, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &MongoMessageStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(messagesCollection),
	}, nil
}

func (s *MongoMessageStore) SaveMessage(ctx context.Context, msg *domain.ChatMessage) (string, error) {
	res, err := s.coll.InsertOne(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (s *MongoMessageStore) MarkSeen(ctx context.Context, sender, receiver string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"sender": sender, "receiver": receiver, "seen": false},
		bson.M{"$set": bson.M{"seen": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoMessageStore) MessagesBetween(ctx context.Context, userA, userB string) ([]domain.ChatMessage, error) {
	filter := bson.M{"$or": []bson.M{
		{"sender": userA, "receiver": userB},
		{"sender": userB, "receiver": userA},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]domain.ChatMessage, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

// Close disconnects the underlying client.
func (s *MongoMessageStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
