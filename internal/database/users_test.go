package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"mealtrack/internal/models"
)

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	ctx := context.Background()
	ns := "canteen." + UsersCollection

	mt.Run("create sets id", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := &models.User{Identifier: "a@x.com", PasswordHash: "h"}
		require.NoError(t, repo.Create(ctx, u))
		assert.False(t, u.ID.IsZero())
		assert.False(t, u.CreatedAt.IsZero())
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(ctx, &models.User{Identifier: "a@x.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	mt.Run("find by identifier", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		id := primitive.NewObjectID()
		expires := time.Date(2026, 10, 19, 12, 5, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "userId", Value: "a@x.com"},
			{Key: "password", Value: "h"},
			{Key: "loginOtp", Value: bson.D{{Key: "code", Value: "1234"}, {Key: "expiresAt", Value: expires}}},
			{Key: "isVerified", Value: false},
		}))

		u, err := repo.FindByIdentifier(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "a@x.com", u.Identifier)
		require.NotNil(t, u.LoginOTP)
		assert.Equal(t, "1234", u.LoginOTP.Code)
		assert.True(t, expires.Equal(u.LoginOTP.ExpiresAt))
		assert.Nil(t, u.ResetOTP)
	})

	mt.Run("find missing", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindByIdentifier(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("consume login otp", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		ok, err := repo.ConsumeLoginOTP(ctx, primitive.NewObjectID(), "1234")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ConsumeLoginOTP(ctx, primitive.NewObjectID(), "1234")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	mt.Run("find verified", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "userId", Value: "a@x.com"}, {Key: "isVerified", Value: true}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "userId", Value: "b@x.com"}, {Key: "isVerified", Value: true}},
		))

		users, err := repo.FindVerified(ctx, 2)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "b@x.com", users[1].Identifier)
	})

	mt.Run("reset otp lookup puts live codes first", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindByResetOTP(ctx, "4444", 16)
		require.NoError(t, err)

		var cmd struct {
			Filter bson.M `bson:"filter"`
			Sort   bson.M `bson:"sort"`
			Limit  int64  `bson:"limit"`
		}
		require.NoError(t, bson.Unmarshal(mt.GetStartedEvent().Command, &cmd))
		assert.Equal(t, "4444", cmd.Filter["resetOtp.code"])
		assert.EqualValues(t, -1, cmd.Sort["resetOtp.expiresAt"])
		assert.EqualValues(t, 16, cmd.Limit)
	})

	mt.Run("failed attempts below limit", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "failedAttempts", Value: 2},
		}}))

		locked, err := repo.RecordFailedAttempt(ctx, id, 5, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, locked)
	})

	mt.Run("failed attempts reaching limit lock", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: id},
				{Key: "failedAttempts", Value: 5},
			}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		locked, err := repo.RecordFailedAttempt(ctx, id, 5, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, locked)
	})
}
