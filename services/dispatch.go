package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"aeternum/models"
	"aeternum/repository"
	"aeternum/util"

	"github.com/rs/zerolog/log"
)

type EmergencyCallRepository interface {
	Insert(ctx context.Context, call *models.EmergencyCall) error
	FindByID(ctx context.Context, id string) (*models.EmergencyCall, error)
	List(ctx context.Context, f models.EmergencyFilter) ([]models.EmergencyCall, error)
	Pending(ctx context.Context, limit int) ([]models.EmergencyCall, error)
	AssignAmbulance(ctx context.Context, id, ambulanceID string, now time.Time) error
	Transition(ctx context.Context, id string, from []string, to string, now time.Time) error
	CountActiveForAmbulance(ctx context.Context, ambulanceID string) (int64, error)
}

// DispatchService creates emergency calls and pairs them with ambulances.
type DispatchService struct {
	ambulances AmbulanceRepository
	calls      EmergencyCallRepository
	now        clock
}

func NewDispatchService(ambulances AmbulanceRepository, calls EmergencyCallRepository) *DispatchService {
	return &DispatchService{ambulances: ambulances, calls: calls, now: utcNow}
}

type EmergencyRequest struct {
	PatientName   string `json:"patientName"`
	ContactNumber string `json:"contactNumber"`
	Location      string `json:"location"`
	EmergencyType string `json:"emergencyType"`
	Description   string `json:"description"`
}

// DispatchResult holds the created call. Ambulance is nil when the call was
// queued as pending.
type DispatchResult struct {
	Call      *models.EmergencyCall
	Ambulance *models.Ambulance
}

func (r *DispatchResult) Dispatched() bool {
	return r.Ambulance != nil
}

/*
* Validate the four required fields
* Claim any available ambulance (single atomic find-and-update)
* Insert the call as dispatched or pending depending on the claim
* If the insert fails after a claim, release the ambulance again
 */
func (s *DispatchService) Dispatch(ctx context.Context, actor *models.Actor, req EmergencyRequest) (*DispatchResult, error) {
	if err := requireFields(&req.PatientName, &req.ContactNumber, &req.Location, &req.EmergencyType); err != nil {
		return nil, err
	}

	now := s.now()
	ambulance, err := s.ambulances.ClaimAvailable(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Error while claiming an available ambulance")
		return nil, err
	}

	call := &models.EmergencyCall{
		PatientName:   req.PatientName,
		ContactNumber: req.ContactNumber,
		Location:      req.Location,
		EmergencyType: req.EmergencyType,
		Description:   strings.TrimSpace(req.Description),
		Status:        models.CallPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if actor != nil {
		userID := actor.UserID
		call.UserID = &userID
	}
	if ambulance != nil {
		ambulanceID := ambulance.ID
		call.Status = models.CallDispatched
		call.AmbulanceID = &ambulanceID
		call.DispatchedAt = &now
	}

	if err := s.calls.Insert(ctx, call); err != nil {
		log.Error().Err(err).Msg("Error while inserting emergency call")
		if ambulance != nil {
			s.compensate(ambulance.ID)
		}
		return nil, err
	}

	if ambulance != nil {
		log.Info().Str("callId", call.ID.Hex()).Str("ambulanceId", ambulance.ID).Msg("Ambulance dispatched")
	} else {
		log.Warn().Str("callId", call.ID.Hex()).Msg("No ambulance available, emergency call queued")
	}
	return &DispatchResult{Call: call, Ambulance: ambulance}, nil
}

// compensate runs detached from the request so a cancelled client does not
// leave the ambulance stranded.
func (s *DispatchService) compensate(ambulanceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.ambulances.Release(ctx, ambulanceID, s.now()); err != nil {
		log.Error().Err(err).Str("ambulanceId", ambulanceID).Msg("Failed to release claimed ambulance, reconciler will retry")
		return
	}
	log.Warn().Str("ambulanceId", ambulanceID).Msg("Released ambulance after failed emergency call insert")
}

/*
* Staff see every call
* Everyone else only sees calls they raised
 */
func (s *DispatchService) ListCalls(ctx context.Context, actor *models.Actor, status string) ([]models.EmergencyCall, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	filter := models.EmergencyFilter{Status: status}
	if !actor.IsStaff() {
		filter.UserID = actor.UserID
	}
	calls, err := s.calls.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("Error while listing emergency calls")
		return nil, err
	}
	return calls, nil
}

var callTransitions = map[string][]string{
	models.CallInProgress: {models.CallDispatched},
	models.CallCompleted:  {models.CallPending, models.CallDispatched, models.CallInProgress},
}

type UpdateCallInput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

/*
* Staff only
* Move the call forward, refusing illegal transitions
* Completing a call frees its ambulance
 */
func (s *DispatchService) UpdateCallStatus(ctx context.Context, actor *models.Actor, in UpdateCallInput) (*models.EmergencyCall, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return nil, validationError(util.MISSING_EMERGENCY_CALL_ID)
	}
	if !models.ValidCallStatus(in.Status) {
		return nil, validationError(util.INVALID_EMERGENCY_STATUS)
	}
	from, ok := callTransitions[in.Status]
	if !ok {
		return nil, conflictError(util.INVALID_STATUS_TRANSITION)
	}

	call, err := s.calls.FindByID(ctx, in.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError(util.EMERGENCY_CALL_NOT_FOUND)
	}
	if err != nil {
		log.Error().Err(err).Str("callId", in.ID).Msg("Error while fetching emergency call")
		return nil, err
	}

	now := s.now()
	err = s.calls.Transition(ctx, in.ID, from, in.Status, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, conflictError(util.INVALID_STATUS_TRANSITION)
	}
	if err != nil {
		log.Error().Err(err).Str("callId", in.ID).Msg("Error while updating emergency call")
		return nil, err
	}

	if in.Status == models.CallCompleted && call.AmbulanceID != nil {
		err := s.ambulances.Release(ctx, *call.AmbulanceID, now)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Error().Err(err).Str("ambulanceId", *call.AmbulanceID).Msg("Error while releasing ambulance")
			return nil, err
		}
	}

	call.Status = in.Status
	call.UpdatedAt = now
	if in.Status == models.CallCompleted {
		call.CompletedAt = &now
	}
	return call, nil
}

/*
* Walk pending calls oldest first
* Claim an ambulance for each; stop as soon as the fleet is busy
* If the call was handled elsewhere meanwhile, give the ambulance back
 */
func (s *DispatchService) DispatchPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.calls.Pending(ctx, limit)
	if err != nil {
		return 0, err
	}
	dispatched := 0
	for _, call := range pending {
		now := s.now()
		ambulance, err := s.ambulances.ClaimAvailable(ctx, now)
		if err != nil {
			return dispatched, err
		}
		if ambulance == nil {
			break
		}
		err = s.calls.AssignAmbulance(ctx, call.ID.Hex(), ambulance.ID, now)
		if err != nil {
			if relErr := s.ambulances.Release(ctx, ambulance.ID, s.now()); relErr != nil {
				log.Error().Err(relErr).Str("ambulanceId", ambulance.ID).Msg("Error while releasing ambulance")
			}
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return dispatched, err
		}
		log.Info().Str("callId", call.ID.Hex()).Str("ambulanceId", ambulance.ID).Msg("Pending emergency call dispatched")
		dispatched++
	}
	return dispatched, nil
}

/*
* An ambulance is stranded when it is on_call, has not been touched for the
* grace period and no dispatched or in_progress call references it
 */
func (s *DispatchService) ReleaseStranded(ctx context.Context, grace time.Duration) (int, error) {
	onCall, err := s.ambulances.List(ctx, models.AmbulanceFilter{Status: models.AmbulanceOnCall})
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-grace)
	released := 0
	for _, a := range onCall {
		if a.ID == "" || a.UpdatedAt.After(cutoff) {
			continue
		}
		active, err := s.calls.CountActiveForAmbulance(ctx, a.ID)
		if err != nil {
			return released, err
		}
		if active > 0 {
			continue
		}
		err = s.ambulances.Release(ctx, a.ID, s.now())
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return released, err
		}
		log.Warn().Str("ambulanceId", a.ID).Msg("Released stranded ambulance")
		released++
	}
	return released, nil
}
