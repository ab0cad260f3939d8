package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const activitiesCollection = "activities"

// activityDocument is the BSON shape of an Activity.
type activityDocument struct {
	ID              bson.ObjectID `bson:"_id,omitempty"`
	User            string        `bson:"user"`
	Type            string        `bson:"type"`
	Value           float64       `bson:"value"`
	CarbonFootprint float64       `bson:"carbonFootprint"`
	Date            time.Time     `bson:"date"`
	CreatedAt       time.Time     `bson:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt"`
}

func (d *activityDocument) toActivity() *Activity {
	return &Activity{
		ID:              d.ID.Hex(),
		User:            d.User,
		Type:            d.Type,
		Value:           d.Value,
		CarbonFootprint: d.CarbonFootprint,
		Date:            d.Date,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// MongoStore is the MongoDB-backed ActivityStore.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects, pings, and ensures the activity indexes exist.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(activitiesCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("connected to database", "driver", "mongodb", "database", database)
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create activity indexes: %w", err)
	}
	return nil
}

// Insert stores a new activity document.
func (s *MongoStore) Insert(ctx context.Context, activity *Activity) error {
	now := time.Now().UTC()
	doc := activityDocument{
		ID:              bson.NewObjectID(),
		User:            activity.User,
		Type:            activity.Type,
		Value:           activity.Value,
		CarbonFootprint: activity.CarbonFootprint,
		Date:            activity.Date,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	activity.ID = doc.ID.Hex()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	return nil
}

// Find issues a find with an optional sort.
func (s *MongoStore) Find(ctx context.Context, filter Filter, sort Sort) ([]*Activity, error) {
	opts := options.Find()
	if sort.Field != "" {
		dir := 1
		if sort.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: string(sort.Field), Value: dir}})
	}

	cursor, err := s.collection.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []activityDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}

	activities := make([]*Activity, 0, len(docs))
	for i := range docs {
		activities = append(activities, docs[i].toActivity())
	}
	return activities, nil
}

// Leaderboard runs the group/sort/limit aggregation pipeline.
func (s *MongoStore) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$user"},
			{Key: "totalCarbonFootprint", Value: bson.D{{Key: "$sum", Value: "$carbonFootprint"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalCarbonFootprint", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		User  string  `bson:"_id"`
		Total float64 `bson:"totalCarbonFootprint"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, LeaderboardEntry{User: row.User, TotalCarbonFootprint: row.Total})
	}
	return entries, nil
}

// HealthCheck pings the primary.
func (s *MongoStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mongoFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.User != "" {
		filter["user"] = f.User
	}
	if f.DateFrom != nil || f.DateTo != nil {
		dateRange := bson.M{}
		if f.DateFrom != nil {
			dateRange["$gte"] = *f.DateFrom
		}
		if f.DateTo != nil {
			dateRange["$lte"] = *f.DateTo
		}
		filter["date"] = dateRange
	}
	return filter
}
