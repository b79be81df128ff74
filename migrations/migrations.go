package migrations

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

type Migration struct {
	Name string
	Run  func(ctx context.Context, db *mongo.Database) (int64, error)
}

// All is applied in order. Every migration is an idempotent backfill.
var All = []Migration{
	{Name: "001_backfill_ambulance_ids", Run: BackfillAmbulanceIDs},
	{Name: "002_default_payment_status", Run: DefaultPaymentStatus},
}

func Run(ctx context.Context, db *mongo.Database) error {
	for _, m := range All {
		n, err := m.Run(ctx, db)
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Int64("updated", n).Msg("Migration applied")
	}
	return nil
}
