package jobs

import (
	"context"
	"errors"
	"time"

	"aeternum/models"
	"aeternum/repository"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Dispatcher is the part of the dispatch service the scheduler drives.
type Dispatcher interface {
	DispatchPending(ctx context.Context, limit int) (int, error)
	ReleaseStranded(ctx context.Context, grace time.Duration) (int, error)
}

type Schedule struct {
	DispatchSpec  string
	ReconcileSpec string
	Batch         int
	Grace         time.Duration
}

const jobTimeout = time.Minute

/*
* Register the pending-call drain and the stranded-ambulance sweep
* Start the scheduler; the caller stops it on shutdown
 */
func StartScheduler(d Dispatcher, s Schedule) (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc(s.DispatchSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		RunPendingDispatch(ctx, d, s.Batch)
	}); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(s.ReconcileSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		RunReconcile(ctx, d, s.Grace)
	}); err != nil {
		return nil, err
	}

	c.Start()
	log.Info().
		Str("dispatch", s.DispatchSpec).
		Str("reconcile", s.ReconcileSpec).
		Msg("Scheduler started")
	return c, nil
}

func RunPendingDispatch(ctx context.Context, d Dispatcher, batch int) int {
	n, err := d.DispatchPending(ctx, batch)
	if err != nil {
		log.Error().Err(err).Int("dispatched", n).Msg("Error while dispatching pending emergency calls")
		return n
	}
	if n > 0 {
		log.Info().Int("dispatched", n).Msg("Pending emergency calls dispatched")
	}
	return n
}

func RunReconcile(ctx context.Context, d Dispatcher, grace time.Duration) int {
	n, err := d.ReleaseStranded(ctx, grace)
	if err != nil {
		log.Error().Err(err).Int("released", n).Msg("Error while releasing stranded ambulances")
		return n
	}
	if n > 0 {
		log.Info().Int("released", n).Msg("Stranded ambulances released")
	}
	return n
}

// FleetStore is what seeding needs from the ambulance repository.
type FleetStore interface {
	FindByID(ctx context.Context, id string) (*models.Ambulance, error)
	Insert(ctx context.Context, a *models.Ambulance) error
}

var StarterFleet = []models.Ambulance{
	{ID: "AMB-1001", DriverName: "John Carter", VehicleNumber: "KA-01-AM-1001", PhoneNumber: "+1-555-0101", Location: "Central Station"},
	{ID: "AMB-1002", DriverName: "Maria Lopez", VehicleNumber: "KA-01-AM-1002", PhoneNumber: "+1-555-0102", Location: "North Wing"},
	{ID: "AMB-1003", DriverName: "Samir Patel", VehicleNumber: "KA-01-AM-1003", PhoneNumber: "+1-555-0103", Location: "East Depot"},
}

/*
* Insert each ambulance whose id is not taken yet
* Existing vehicles are left untouched
 */
func SeedFleet(ctx context.Context, store FleetStore, fleet []models.Ambulance) (int, error) {
	inserted := 0
	now := time.Now().UTC()
	for _, a := range fleet {
		_, err := store.FindByID(ctx, a.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error().Err(err).Str("ambulanceId", a.ID).Msg("Error checking ambulance")
			return inserted, err
		}
		a.Status = models.AmbulanceAvailable
		a.CreatedAt = now
		a.UpdatedAt = now
		if err := store.Insert(ctx, &a); err != nil {
			log.Error().Err(err).Str("ambulanceId", a.ID).Msg("Error inserting seed ambulance")
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
