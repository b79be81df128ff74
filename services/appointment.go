package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"aeternum/models"
	"aeternum/repository"
	"aeternum/role"
	"aeternum/util"

	"github.com/rs/zerolog/log"
)

type AppointmentRepository interface {
	Insert(ctx context.Context, a *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error)
	FindSlotHolder(ctx context.Context, slot models.Slot, excludeID string) (*models.Appointment, error)
	Update(ctx context.Context, id string, upd models.AppointmentUpdate, now time.Time) error
}

// DoctorLookup resolves doctor profiles attached to appointment responses.
type DoctorLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type AppointmentService struct {
	repo    AppointmentRepository
	doctors DoctorLookup
	now     clock
}

func NewAppointmentService(repo AppointmentRepository, doctors DoctorLookup) *AppointmentService {
	return &AppointmentService{repo: repo, doctors: doctors, now: utcNow}
}

// AppointmentView is an appointment with its doctor's public profile.
type AppointmentView struct {
	models.Appointment
	Doctor *models.PublicUser `json:"doctor,omitempty"`
}

type BookAppointmentInput struct {
	PatientID       string `json:"patientId"`
	DoctorID        string `json:"doctorId"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PaymentStatus   string `json:"paymentStatus"`
	PaymentMethod   string `json:"paymentMethod"`
	TransactionHash string `json:"transactionHash"`
	Notes           string `json:"notes"`
}

type UpdateAppointmentInput struct {
	ID              string  `json:"id"`
	Status          *string `json:"status"`
	PaymentStatus   *string `json:"paymentStatus"`
	PaymentMethod   *string `json:"paymentMethod"`
	TransactionHash *string `json:"transactionHash"`
	Notes           *string `json:"notes"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
}

type AppointmentQuery struct {
	UserID   string
	DoctorID string
	Status   string
}

func (s *AppointmentService) doctor(ctx context.Context, id string) *models.PublicUser {
	if s.doctors == nil || id == "" {
		return nil
	}
	u, err := s.doctors.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error().Err(err).Str("doctorId", id).Msg("Error while fetching doctor")
		}
		return nil
	}
	return u.Public()
}

/*
* Validate doctorId, date and time
* Patient defaults to the caller; patients cannot book for others
* Refuse the booking when a non-cancelled appointment holds the slot
* Insert as confirmed with paymentStatus defaulting to pending
 */
func (s *AppointmentService) Book(ctx context.Context, actor *models.Actor, in BookAppointmentInput) (*AppointmentView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := requireFields(&in.DoctorID, &in.Date, &in.Time); err != nil {
		return nil, err
	}
	patientID := strings.TrimSpace(in.PatientID)
	if patientID == "" {
		patientID = actor.UserID
	}
	if actor.Is(role.Patient) && patientID != actor.UserID {
		return nil, unauthorizedError(util.UNAUTHORIZED)
	}

	slot := models.Slot{DoctorID: in.DoctorID, Date: in.Date, Time: in.Time}
	holder, err := s.repo.FindSlotHolder(ctx, slot, "")
	if err != nil {
		log.Error().Err(err).Msg("Error while checking slot availability")
		return nil, err
	}
	if holder != nil {
		return nil, conflictError(util.SLOT_ALREADY_BOOKED)
	}

	paymentStatus := strings.TrimSpace(in.PaymentStatus)
	if paymentStatus == "" {
		paymentStatus = models.PaymentPending
	}
	a := &models.Appointment{
		PatientID:       patientID,
		DoctorID:        in.DoctorID,
		Date:            in.Date,
		Time:            in.Time,
		Status:          models.AppointmentConfirmed,
		PaymentStatus:   paymentStatus,
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		TransactionHash: strings.TrimSpace(in.TransactionHash),
		Notes:           strings.TrimSpace(in.Notes),
		CreatedAt:       s.now(),
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		log.Error().Err(err).Msg("Error while inserting appointment")
		return nil, err
	}
	return &AppointmentView{Appointment: *a, Doctor: s.doctor(ctx, a.DoctorID)}, nil
}

func canUpdateAppointment(actor *models.Actor, a *models.Appointment) bool {
	return actor.IsStaff() || a.PatientID == actor.UserID || a.DoctorID == actor.UserID
}

/*
* Fetch the appointment and check the caller owns it or is staff
* Copy across the provided fields
* Reschedule only with both date and time, and only while the appointment is open;
* the collision check skips the appointment itself
* Reviving a cancelled appointment needs its slot to still be free
 */
func (s *AppointmentService) Update(ctx context.Context, actor *models.Actor, in UpdateAppointmentInput) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return validationError(util.MISSING_APPOINTMENT_ID)
	}
	current, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError(util.APPOINTMENT_NOT_FOUND)
	}
	if err != nil {
		log.Error().Err(err).Str("appointmentId", id).Msg("Error while fetching appointment")
		return err
	}
	if !canUpdateAppointment(actor, current) {
		return unauthorizedError(util.UNAUTHORIZED)
	}

	upd := models.AppointmentUpdate{
		Status:          trimmed(in.Status),
		PaymentStatus:   trimmed(in.PaymentStatus),
		PaymentMethod:   trimmed(in.PaymentMethod),
		TransactionHash: trimmed(in.TransactionHash),
		Notes:           trimmed(in.Notes),
	}
	if upd.Status != nil && !models.ValidAppointmentStatus(*upd.Status) {
		return validationError(util.INVALID_APPOINTMENT_STATUS)
	}

	date, tm := trimmed(in.Date), trimmed(in.Time)
	open := current.Status != models.AppointmentCompleted && current.Status != models.AppointmentCancelled
	if date != nil && tm != nil && open {
		slot := models.Slot{DoctorID: current.DoctorID, Date: *date, Time: *tm}
		holder, err := s.repo.FindSlotHolder(ctx, slot, id)
		if err != nil {
			log.Error().Err(err).Msg("Error while checking slot availability")
			return err
		}
		if holder != nil {
			return conflictError(util.NEW_SLOT_ALREADY_BOOKED)
		}
		upd.Date, upd.Time = date, tm
	}
	reopening := !current.Holds() && upd.Status != nil && *upd.Status != models.AppointmentCancelled
	if reopening {
		holder, err := s.repo.FindSlotHolder(ctx, current.Slot(), id)
		if err != nil {
			log.Error().Err(err).Msg("Error while checking slot availability")
			return err
		}
		if holder != nil {
			return conflictError(util.NEW_SLOT_ALREADY_BOOKED)
		}
	}
	if upd.Empty() {
		return validationError(util.NO_CHANGES_MADE)
	}

	err = s.repo.Update(ctx, id, upd, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError(util.APPOINTMENT_NOT_FOUND)
	}
	if err != nil {
		log.Error().Err(err).Str("appointmentId", id).Msg("Error while updating appointment")
		return err
	}
	return nil
}

/*
* Doctors see their own schedule, patients their own bookings
* Staff see everything, narrowed by userId when asked
* Non-staff asking for someone else is refused
 */
func (s *AppointmentService) List(ctx context.Context, actor *models.Actor, q AppointmentQuery) ([]AppointmentView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	requested := strings.TrimSpace(q.UserID)
	if requested != "" && requested != actor.UserID && !actor.IsStaff() {
		return nil, unauthorizedError(util.UNAUTHORIZED)
	}

	filter := models.AppointmentFilter{Status: q.Status}
	switch {
	case actor.Is(role.Doctor):
		filter.DoctorID = actor.UserID
	case actor.Is(role.Patient):
		filter.PatientID = actor.UserID
	default:
		filter.PatientID = requested
	}
	if q.DoctorID != "" && !actor.Is(role.Doctor) {
		filter.DoctorID = q.DoctorID
	}

	appointments, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("Error while listing appointments")
		return nil, err
	}

	doctors := map[string]*models.PublicUser{}
	views := make([]AppointmentView, 0, len(appointments))
	for _, a := range appointments {
		d, seen := doctors[a.DoctorID]
		if !seen {
			d = s.doctor(ctx, a.DoctorID)
			doctors[a.DoctorID] = d
		}
		views = append(views, AppointmentView{Appointment: a, Doctor: d})
	}
	return views, nil
}
