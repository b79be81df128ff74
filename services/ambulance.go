package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"aeternum/models"
	"aeternum/repository"
	"aeternum/util"

	"github.com/rs/zerolog/log"
)

type AmbulanceRepository interface {
	Insert(ctx context.Context, a *models.Ambulance) error
	FindByID(ctx context.Context, id string) (*models.Ambulance, error)
	List(ctx context.Context, f models.AmbulanceFilter) ([]models.Ambulance, error)
	Update(ctx context.Context, id string, upd models.AmbulanceUpdate, now time.Time) error
	Delete(ctx context.Context, id string) error
	ClaimAvailable(ctx context.Context, now time.Time) (*models.Ambulance, error)
	Release(ctx context.Context, id string, now time.Time) error
}

const generatedIDAttempts = 5

// GenerateAmbulanceID returns an id of the form AMB-1000..AMB-9999.
func GenerateAmbulanceID() string {
	return fmt.Sprintf("AMB-%d", 1000+rand.Intn(9000))
}

type AmbulanceService struct {
	repo  AmbulanceRepository
	now   clock
	newID func() string
}

func NewAmbulanceService(repo AmbulanceRepository) *AmbulanceService {
	return &AmbulanceService{repo: repo, now: utcNow, newID: GenerateAmbulanceID}
}

type CreateAmbulanceInput struct {
	ID            string `json:"id"`
	DriverName    string `json:"driverName"`
	VehicleNumber string `json:"vehicleNumber"`
	PhoneNumber   string `json:"phoneNumber"`
	Status        string `json:"status"`
	Location      string `json:"location"`
	LastService   string `json:"lastService"`
}

type UpdateAmbulanceInput struct {
	ID            string  `json:"id"`
	Status        *string `json:"status"`
	Location      *string `json:"location"`
	DriverName    *string `json:"driverName"`
	VehicleNumber *string `json:"vehicleNumber"`
	PhoneNumber   *string `json:"phoneNumber"`
	LastService   *string `json:"lastService"`
}

/*
* Only staff can register a vehicle
* Validate required fields and the status enumeration
* Use the supplied id or generate one, retrying generated ids on collision
 */
func (s *AmbulanceService) Create(ctx context.Context, actor *models.Actor, in CreateAmbulanceInput) (*models.Ambulance, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := requireFields(&in.DriverName, &in.VehicleNumber, &in.Status, &in.Location); err != nil {
		return nil, err
	}
	if !models.ValidAmbulanceStatus(in.Status) {
		return nil, validationError(util.INVALID_AMBULANCE_STATUS)
	}
	now := s.now()
	a := &models.Ambulance{
		DriverName:    in.DriverName,
		VehicleNumber: in.VehicleNumber,
		PhoneNumber:   in.PhoneNumber,
		Status:        in.Status,
		Location:      in.Location,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ls := trimmed(&in.LastService); ls != nil {
		t, ok := parseDate(*ls)
		if !ok {
			return nil, validationError(util.INVALID_LAST_SERVICE_DATE)
		}
		a.LastService = &t
	}

	if id := trimmed(&in.ID); id != nil {
		a.ID = *id
		err := s.repo.Insert(ctx, a)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError(util.AMBULANCE_ID_EXISTS)
		}
		if err != nil {
			log.Error().Err(err).Msg("Error while inserting ambulance")
			return nil, err
		}
		return a, nil
	}

	var err error
	for i := 0; i < generatedIDAttempts; i++ {
		a.ID = s.newID()
		err = s.repo.Insert(ctx, a)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		log.Warn().Str("ambulanceId", a.ID).Msg("Generated ambulance id already taken, retrying")
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, conflictError(util.AMBULANCE_ID_EXISTS)
	}
	if err != nil {
		log.Error().Err(err).Msg("Error while inserting ambulance")
		return nil, err
	}
	return a, nil
}

func (s *AmbulanceService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Ambulance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	a, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError(util.AMBULANCE_NOT_FOUND)
	}
	if err != nil {
		log.Error().Err(err).Str("ambulanceId", id).Msg("Error while fetching ambulance")
		return nil, err
	}
	return a, nil
}

func (s *AmbulanceService) List(ctx context.Context, actor *models.Actor, status string) ([]models.Ambulance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ambulances, err := s.repo.List(ctx, models.AmbulanceFilter{Status: status})
	if err != nil {
		log.Error().Err(err).Msg("Error while listing ambulances")
		return nil, err
	}
	return ambulances, nil
}

/*
* Apply whichever fields were provided
* Any status in the enumeration is accepted, no transition checks
* The repository always stamps updatedAt
 */
func (s *AmbulanceService) Update(ctx context.Context, actor *models.Actor, in UpdateAmbulanceInput) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	id := trimmed(&in.ID)
	if id == nil {
		return validationError(util.MISSING_AMBULANCE_ID)
	}
	upd := models.AmbulanceUpdate{
		Status:        trimmed(in.Status),
		Location:      trimmed(in.Location),
		DriverName:    trimmed(in.DriverName),
		VehicleNumber: trimmed(in.VehicleNumber),
		PhoneNumber:   trimmed(in.PhoneNumber),
	}
	if upd.Status != nil && !models.ValidAmbulanceStatus(*upd.Status) {
		return validationError(util.INVALID_AMBULANCE_STATUS)
	}
	if ls := trimmed(in.LastService); ls != nil {
		t, ok := parseDate(*ls)
		if !ok {
			return validationError(util.INVALID_LAST_SERVICE_DATE)
		}
		upd.LastService = &t
	}

	err := s.repo.Update(ctx, *id, upd, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError(util.AMBULANCE_NOT_FOUND)
	}
	if err != nil {
		log.Error().Err(err).Str("ambulanceId", *id).Msg("Error while updating ambulance")
		return err
	}
	return nil
}

func (s *AmbulanceService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return validationError(util.MISSING_AMBULANCE_ID)
	}
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError(util.AMBULANCE_NOT_FOUND)
	}
	if err != nil {
		log.Error().Err(err).Str("ambulanceId", id).Msg("Error while removing ambulance")
		return err
	}
	return nil
}
