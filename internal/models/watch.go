package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// watchQuery emits load's result once and then again after every change the
// collection's change stream reports for pipeline. The stream is opened
// before the first load so no change between the two is lost. Change streams
// need a replica set or sharded cluster.
func watchQuery[T any](ctx context.Context, col *mongo.Collection, pipeline mongo.Pipeline, load func(context.Context) ([]T, error)) (<-chan []T, error) {
	if pipeline == nil {
		pipeline = mongo.Pipeline{}
	}
	stream, err := col.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error opening change stream: %w", err)
	}

	initial, err := load(ctx)
	if err != nil {
		_ = stream.Close(context.Background())
		return nil, err
	}

	out := make(chan []T, 1)
	out <- initial

	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			snapshot, err := load(ctx)
			if err != nil {
				return
			}
			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
