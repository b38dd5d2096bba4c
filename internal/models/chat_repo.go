package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (mdb *MongodbRepo) InsertMessage(ctx context.Context, msg *ChatMessage) error {
	col, err := mdb.GetCollection(MessagesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if err := msg.BeforeCreate(); err != nil {
		return fmt.Errorf("failed to prepare message for creation: %w", err)
	}
	msg.Timestamp = time.Now().UTC()

	if _, err := col.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message into database: %w", err)
	}
	return nil
}

// ListMessages sorts by timestamp, then by ObjectID so messages stored in the
// same millisecond keep their insertion order.
func (mdb *MongodbRepo) ListMessages(ctx context.Context, eventID string) ([]ChatMessage, error) {
	col, err := mdb.GetCollection(MessagesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "_id", Value: 1},
	})
	cursor, err := col.Find(ctx, bson.M{"event_id": eventID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("error decoding messages: %w", err)
	}
	return messages, nil
}

func (mdb *MongodbRepo) DeleteEventMessages(ctx context.Context, eventID string) error {
	col, err := mdb.GetCollection(MessagesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.DeleteMany(ctx, bson.M{"event_id": eventID}); err != nil {
		return fmt.Errorf("error deleting messages: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) WatchMessages(ctx context.Context, eventID string) (<-chan []ChatMessage, error) {
	col, err := mdb.GetCollection(MessagesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType":         "insert",
			"fullDocument.event_id": eventID,
		}}},
	}
	return watchQuery(ctx, col, pipeline, func(ctx context.Context) ([]ChatMessage, error) {
		return mdb.ListMessages(ctx, eventID)
	})
}
