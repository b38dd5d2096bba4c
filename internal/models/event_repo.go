package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// rosterSize is the aggregation expression for the current participant count.
var rosterSize = bson.M{"$size": "$participant_ids"}

func (mdb *MongodbRepo) InsertEvent(ctx context.Context, event *SportsEvent) error {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert event into database: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetEvent(ctx context.Context, id string) (*SportsEvent, error) {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var event SportsEvent
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("error finding event: %w", err)
	}
	return &event, nil
}

func (mdb *MongodbRepo) ListEvents(ctx context.Context) ([]SportsEvent, error) {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []SportsEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("error decoding events: %w", err)
	}
	return events, nil
}

func (mdb *MongodbRepo) AddParticipant(ctx context.Context, eventID, userID, userName string) error {
	filter := bson.M{
		"_id":             eventID,
		"is_active":       true,
		"participant_ids": bson.M{"$ne": userID},
		"$expr":           bson.M{"$lt": bson.A{rosterSize, "$max_participants"}},
	}
	update := bson.M{
		"$push": bson.M{"participant_ids": userID},
		"$set": bson.M{
			"participant_names." + userID: userName,
			"updated_at":                  time.Now().UTC(),
		},
	}
	return mdb.updateEvent(ctx, filter, update)
}

func (mdb *MongodbRepo) RemoveParticipant(ctx context.Context, eventID, userID string) error {
	filter := bson.M{
		"_id":             eventID,
		"is_active":       true,
		"participant_ids": userID,
		"created_by":      bson.M{"$ne": userID},
	}
	update := bson.M{
		"$pull":  bson.M{"participant_ids": userID},
		"$unset": bson.M{"participant_names." + userID: ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	}
	return mdb.updateEvent(ctx, filter, update)
}

func (mdb *MongodbRepo) KickParticipant(ctx context.Context, eventID, actorID string, record KickRecord) error {
	if record.UserID == actorID {
		return ErrPreconditionFailed
	}
	filter := bson.M{
		"_id":             eventID,
		"is_active":       true,
		"created_by":      actorID,
		"participant_ids": record.UserID,
	}
	update := bson.M{
		"$pull":  bson.M{"participant_ids": record.UserID},
		"$unset": bson.M{"participant_names." + record.UserID: ""},
		"$push":  bson.M{"kicked": record},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	}
	return mdb.updateEvent(ctx, filter, update)
}

func (mdb *MongodbRepo) CloseEvent(ctx context.Context, eventID, actorID, reason string, at time.Time) error {
	filter := bson.M{
		"_id":        eventID,
		"is_active":  true,
		"created_by": actorID,
	}
	update := bson.M{
		"$set": bson.M{
			"is_active":     false,
			"closed_reason": reason,
			"closed_at":     at,
			"updated_at":    at,
		},
	}
	return mdb.updateEvent(ctx, filter, update)
}

func (mdb *MongodbRepo) DeleteEvent(ctx context.Context, eventID, actorID string) error {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": eventID, "created_by": actorID})
	if err != nil {
		return fmt.Errorf("error deleting event: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

func (mdb *MongodbRepo) UpdateMaxParticipants(ctx context.Context, eventID, actorID string, max int) error {
	filter := bson.M{
		"_id":        eventID,
		"is_active":  true,
		"created_by": actorID,
		"$expr":      bson.M{"$lte": bson.A{rosterSize, max}},
	}
	update := bson.M{
		"$set": bson.M{
			"max_participants": max,
			"updated_at":       time.Now().UTC(),
		},
	}
	return mdb.updateEvent(ctx, filter, update)
}

func (mdb *MongodbRepo) WatchEvents(ctx context.Context) (<-chan []SportsEvent, error) {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	return watchQuery(ctx, col, nil, mdb.ListEvents)
}

// updateEvent applies update to the single event matching filter. The match
// and the write happen as one document operation, so a filter that encodes
// the precondition cannot be raced past.
func (mdb *MongodbRepo) updateEvent(ctx context.Context, filter, update bson.M) error {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	res, err := col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating event: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrPreconditionFailed
	}
	return nil
}
