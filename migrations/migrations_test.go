package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func updated(n int) bson.D {
	return bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: n}, {Key: "nModified", Value: n}}
}

func TestBackfillAmbulanceIDs(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("assigns ids and retries collisions", func(mt *mtest.T) {
		ns := mt.DB.Name() + ".ambulances"
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}},
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}},
			),
			updated(1),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
			updated(1),
		)

		n, err := BackfillAmbulanceIDs(ctx, mt.DB)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), n)
	})

	mt.Run("nothing to do", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".ambulances", mtest.FirstBatch))

		n, err := BackfillAmbulanceIDs(ctx, mt.DB)
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})
}

func TestDefaultPaymentStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("reports modified count", func(mt *mtest.T) {
		mt.AddMockResponses(updated(3))

		n, err := DefaultPaymentStatus(context.Background(), mt.DB)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})
}

func TestRun(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("applies every migration", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+".ambulances", mtest.FirstBatch),
			updated(0),
		)
		require.NoError(mt, Run(context.Background(), mt.DB))
	})

	mt.Run("stops on failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "not authorized"}))

		err := Run(context.Background(), mt.DB)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "001_backfill_ambulance_ids")
	})
}
