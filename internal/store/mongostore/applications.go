package mongostore

import (
	"context"
	"time"

	"github.com/jobfinder/apiserver/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ApplicationRepository stores job applications.
type ApplicationRepository struct {
	coll *mongo.Collection
}

func (r *ApplicationRepository) Create(ctx context.Context, application types.Application) (types.Application, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	application.CreatedAt = now
	application.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, application); err != nil {
		return types.Application{}, mapWriteError(err)
	}
	return application, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (types.Application, error) {
	var application types.Application
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&application); err != nil {
		return types.Application{}, mapReadError(err)
	}
	return application, nil
}

func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID string) ([]types.Application, error) {
	return findAll[types.Application](ctx, r.coll, bson.D{{Key: "applicantId", Value: applicantID}}, newestFirst)
}

func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID string) ([]types.Application, error) {
	return findAll[types.Application](ctx, r.coll, bson.D{{Key: "jobId", Value: jobID}}, newestFirst)
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id, status string) (types.Application, error) {
	var application types.Application
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: status},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&application)
	if err != nil {
		return types.Application{}, mapReadError(err)
	}
	return application, nil
}

func (r *ApplicationRepository) DeleteByJob(ctx context.Context, jobID string) error {
	_, err := r.coll.DeleteMany(ctx, bson.D{{Key: "jobId", Value: jobID}})
	return err
}

func (r *ApplicationRepository) CountByApplicant(ctx context.Context, applicantID, status string) (int64, error) {
	filter := bson.D{{Key: "applicantId", Value: applicantID}}
	if status != "" {
		filter = append(filter, bson.E{Key: "status", Value: status})
	}
	return r.coll.CountDocuments(ctx, filter)
}

func (r *ApplicationRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *ApplicationRepository) MonthlyCounts(ctx context.Context, applicantID string, since time.Time) ([]types.MonthlyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "applicantId", Value: applicantID},
			{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: since.UTC()}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "year", Value: bson.D{{Key: "$year", Value: "$createdAt"}}},
				{Key: "month", Value: bson.D{{Key: "$month", Value: "$createdAt"}}},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID struct {
			Year  int `bson:"year"`
			Month int `bson:"month"`
		} `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make([]types.MonthlyCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, types.MonthlyCount{Year: row.ID.Year, Month: row.ID.Month, Count: row.Count})
	}
	return counts, nil
}
