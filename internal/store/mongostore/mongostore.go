// Package mongostore implements the repositories on a document database.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobfinder/apiserver/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names.
const (
	UsersCollection        = "users"
	CompaniesCollection    = "companies"
	JobsCollection         = "jobs"
	ApplicationsCollection = "applications"
)

// Store groups the repositories of one database.
type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{coll: s.db.Collection(UsersCollection)}
}

func (s *Store) Companies() *CompanyRepository {
	return &CompanyRepository{coll: s.db.Collection(CompaniesCollection)}
}

func (s *Store) Jobs() *JobRepository {
	return &JobRepository{coll: s.db.Collection(JobsCollection)}
}

func (s *Store) Applications() *ApplicationRepository {
	return &ApplicationRepository{coll: s.db.Collection(ApplicationsCollection)}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the unique and lookup indexes every repository
// relies on. It is safe to call repeatedly.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "phoneNumber", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "phoneNumber", Value: bson.D{{Key: "$type", Value: "string"}}}}),
			},
			{Keys: bson.D{{Key: "resetTokenHash", Value: 1}}},
		},
		CompaniesCollection: {
			{Keys: bson.D{{Key: "companyName", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		JobsCollection: {
			{Keys: bson.D{{Key: "createdBy", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		ApplicationsCollection: {
			{Keys: bson.D{{Key: "jobId", Value: 1}, {Key: "applicantId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "applicantId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrConflict
	}
	return err
}

func mapReadError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

// findAll decodes every document matching filter.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...options.Lister[options.FindOptions]) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func expectMatched(result *mongo.UpdateResult) error {
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
