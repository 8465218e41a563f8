package mongostore

import (
	"context"
	"strings"
	"time"

	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// UserRepository stores users. Emails are stored lower-cased.
type UserRepository struct {
	coll *mongo.Collection
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = strings.ToLower(user.Email)
	if user.Profile.Skills == nil {
		user.Profile.Skills = []string{}
	}
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter any) (types.User, error) {
	var user types.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return types.User{}, mapReadError(err)
	}
	if user.Profile.Skills == nil {
		user.Profile.Skills = []string{}
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: strings.ToLower(email)}})
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (types.User, error) {
	return store.ByEmailOrPhone(ctx, identifier, r.GetByEmail, func(ctx context.Context, phone string) (types.User, error) {
		return r.findOne(ctx, bson.D{{Key: "phoneNumber", Value: phone}})
	})
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (types.User, error) {
	if tokenHash == "" {
		return types.User{}, store.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "resetTokenHash", Value: tokenHash}})
}

func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) ([]types.User, error) {
	if len(ids) == 0 {
		return []types.User{}, nil
	}
	return findAll[types.User](ctx, r.coll, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
}

func (r *UserRepository) update(ctx context.Context, filter bson.D, set bson.D) error {
	return r.apply(ctx, filter, bson.D{{Key: "$set", Value: set}})
}

// apply runs update against the single user matching filter, stamping
// updatedAt.
func (r *UserRepository) apply(ctx context.Context, filter bson.D, update bson.D) error {
	for i, op := range update {
		if op.Key == "$set" {
			set := op.Value.(bson.D)
			update[i].Value = append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC()})
		}
	}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapWriteError(err)
	}
	return expectMatched(result)
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	set := bson.D{
		{Key: "fullName", Value: user.FullName},
		{Key: "email", Value: strings.ToLower(user.Email)},
		{Key: "profile", Value: user.Profile},
		{Key: "profileScore", Value: user.ProfileScore},
	}
	update := bson.D{{Key: "$set", Value: set}}
	if user.PhoneNumber != "" {
		update[0].Value = append(set, bson.E{Key: "phoneNumber", Value: user.PhoneNumber})
	} else {
		// Absent phone numbers stay out of the partial unique index.
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "phoneNumber", Value: ""}}})
	}
	if err := r.apply(ctx, bson.D{{Key: "_id", Value: user.ID}}, update); err != nil {
		return types.User{}, err
	}
	return r.GetByID(ctx, user.ID)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "passwordHash", Value: passwordHash}})
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	return r.update(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "refreshTokenHash", Value: tokenHash}})
}

func (r *UserRepository) SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) error {
	if oldHash == "" {
		return store.ErrNotFound
	}
	return r.update(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "refreshTokenHash", Value: oldHash}},
		bson.D{{Key: "refreshTokenHash", Value: newHash}},
	)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiry *time.Time) error {
	var exp any
	if expiry != nil && tokenHash != "" {
		exp = expiry.UTC()
	}
	return r.update(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{
		{Key: "resetTokenHash", Value: tokenHash},
		{Key: "resetTokenExpiry", Value: exp},
	})
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	if tokenHash == "" {
		return store.ErrNotFound
	}
	return r.update(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "resetTokenHash", Value: tokenHash},
			{Key: "resetTokenExpiry", Value: bson.D{{Key: "$gt", Value: now.UTC()}}},
		},
		bson.D{
			{Key: "passwordHash", Value: passwordHash},
			{Key: "resetTokenHash", Value: ""},
			{Key: "resetTokenExpiry", Value: nil},
			{Key: "refreshTokenHash", Value: ""},
		},
	)
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *UserRepository) AverageProfileScore(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$profileScore"}}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Avg float64 `bson:"avg"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Avg, nil
}
