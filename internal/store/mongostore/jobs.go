package mongostore

import (
	"context"
	"regexp"
	"time"

	"github.com/jobfinder/apiserver/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// JobRepository stores jobs.
type JobRepository struct {
	coll *mongo.Collection
}

func (r *JobRepository) Create(ctx context.Context, job types.Job) (types.Job, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	job.CreatedAt = now
	job.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, job); err != nil {
		return types.Job{}, mapWriteError(err)
	}
	return job, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (types.Job, error) {
	var job types.Job
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&job); err != nil {
		return types.Job{}, mapReadError(err)
	}
	return job, nil
}

func (r *JobRepository) List(ctx context.Context, keyword string) ([]types.Job, error) {
	filter := bson.D{}
	if keyword != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
		filter = bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: pattern}},
			bson.D{{Key: "description", Value: pattern}},
		}}}
	}
	return findAll[types.Job](ctx, r.coll, filter, newestFirst)
}

func (r *JobRepository) ListByCreator(ctx context.Context, userID string) ([]types.Job, error) {
	return findAll[types.Job](ctx, r.coll, bson.D{{Key: "createdBy", Value: userID}}, newestFirst)
}

func (r *JobRepository) ListByIDs(ctx context.Context, ids []string) ([]types.Job, error) {
	if len(ids) == 0 {
		return []types.Job{}, nil
	}
	return findAll[types.Job](ctx, r.coll, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
}

func (r *JobRepository) Update(ctx context.Context, job types.Job) (types.Job, error) {
	job.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: job.ID}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: job.Title},
		{Key: "description", Value: job.Description},
		{Key: "requirements", Value: job.Requirements},
		{Key: "salary", Value: job.Salary},
		{Key: "location", Value: job.Location},
		{Key: "jobType", Value: job.JobType},
		{Key: "experience", Value: job.Experience},
		{Key: "position", Value: job.Position},
		{Key: "companyId", Value: job.CompanyID},
		{Key: "updatedAt", Value: job.UpdatedAt},
	}}})
	if err != nil {
		return types.Job{}, mapWriteError(err)
	}
	if err := expectMatched(result); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

func (r *JobRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mapReadError(mongo.ErrNoDocuments)
	}
	return nil
}

func (r *JobRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}
