package calllog

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// MongoRecorder stores call events in a MongoDB collection.
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoRecorder connects to MongoDB and targets the given collection.
func NewMongoRecorder(uri, database, collection string, logger *zap.Logger) (*MongoRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	return &MongoRecorder{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With(zap.String("component", "call_log")),
	}, nil
}

// Record implements Recorder.
func (r *MongoRecorder) Record(ctx context.Context, event Event) error {
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		r.logger.Warn("call log insert failed", zap.Error(err))
		return err
	}
	return nil
}

// Close disconnects from MongoDB.
func (r *MongoRecorder) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
