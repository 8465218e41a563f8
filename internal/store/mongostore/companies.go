package mongostore

import (
	"context"
	"time"

	"github.com/jobfinder/apiserver/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// CompanyRepository stores companies.
type CompanyRepository struct {
	coll *mongo.Collection
}

func (r *CompanyRepository) Create(ctx context.Context, company types.Company) (types.Company, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	company.CreatedAt = now
	company.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, company); err != nil {
		return types.Company{}, mapWriteError(err)
	}
	return company, nil
}

func (r *CompanyRepository) GetByID(ctx context.Context, id string) (types.Company, error) {
	var company types.Company
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&company); err != nil {
		return types.Company{}, mapReadError(err)
	}
	return company, nil
}

func (r *CompanyRepository) ListByOwner(ctx context.Context, userID string) ([]types.Company, error) {
	return findAll[types.Company](ctx, r.coll, bson.D{{Key: "userId", Value: userID}}, newestFirst)
}

func (r *CompanyRepository) ListByIDs(ctx context.Context, ids []string) ([]types.Company, error) {
	if len(ids) == 0 {
		return []types.Company{}, nil
	}
	return findAll[types.Company](ctx, r.coll, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
}

func (r *CompanyRepository) Update(ctx context.Context, company types.Company) (types.Company, error) {
	company.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: company.ID}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "companyName", Value: company.CompanyName},
		{Key: "description", Value: company.Description},
		{Key: "website", Value: company.Website},
		{Key: "location", Value: company.Location},
		{Key: "logo", Value: company.Logo},
		{Key: "updatedAt", Value: company.UpdatedAt},
	}}})
	if err != nil {
		return types.Company{}, mapWriteError(err)
	}
	if err := expectMatched(result); err != nil {
		return types.Company{}, err
	}
	return company, nil
}

func (r *CompanyRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}
