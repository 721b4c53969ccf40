package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mealtrack/internal/models"
)

// MealRepository reads the swipe feed. It never writes to it.
type MealRepository struct {
	col *mongo.Collection
}

// NewMealRepository returns a repository over the named swipe collection.
func NewMealRepository(db *mongo.Database, collection string) *MealRepository {
	return &MealRepository{col: db.Collection(collection)}
}

// Count returns the number of swipes for canteen and mealType whose
// creation time lies in the closed interval [start, end].
func (r *MealRepository) Count(ctx context.Context, canteen string, mealType models.MealType, start, end time.Time) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{
		"device_trigger":   canteen,
		"meal -type":       string(mealType),
		"created_date_utc": bson.M{"$gte": start, "$lte": end},
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s swipes for %s: %w", mealType, canteen, err)
	}
	return n, nil
}

// Canteens returns the distinct non-empty canteen codes, sorted.
func (r *MealRepository) Canteens(ctx context.Context) ([]string, error) {
	values, err := r.col.Distinct(ctx, "device_trigger", bson.M{"device_trigger": bson.M{"$ne": ""}})
	if err != nil {
		return nil, fmt.Errorf("listing canteens: %w", err)
	}
	codes := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			codes = append(codes, s)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// Between returns every swipe in [start, end], oldest first.
func (r *MealRepository) Between(ctx context.Context, start, end time.Time) ([]models.MealRecord, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"created_date_utc": bson.M{"$gte": start, "$lte": end}},
		options.Find().SetSort(bson.D{{Key: "created_date_utc", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("finding swipes: %w", err)
	}
	records := []models.MealRecord{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decoding swipes: %w", err)
	}
	return records, nil
}
