// Package memory holds map-backed repositories with the same semantics as
// the Mongo ones. Service, controller and job tests run against it.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aeternum/models"
	"aeternum/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	Ambulances   *AmbulanceRepo
	Appointments *AppointmentRepo
	Calls        *EmergencyCallRepo
	Users        *UserRepo
}

func New() *Store {
	return &Store{
		Ambulances:   &AmbulanceRepo{},
		Appointments: &AppointmentRepo{docs: map[primitive.ObjectID]models.Appointment{}},
		Calls:        &EmergencyCallRepo{docs: map[primitive.ObjectID]models.EmergencyCall{}},
		Users:        &UserRepo{docs: map[primitive.ObjectID]models.User{}},
	}
}

type AmbulanceRepo struct {
	mu   sync.Mutex
	docs []models.Ambulance

	// ClaimErr, when set, is returned by ClaimAvailable.
	ClaimErr error
}

func (r *AmbulanceRepo) index(id string) int {
	for i, a := range r.docs {
		if a.ID == id || a.ObjectID.Hex() == id {
			return i
		}
	}
	return -1
}

func (r *AmbulanceRepo) Insert(_ context.Context, a *models.Ambulance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.docs {
		if existing.ID == a.ID {
			return repository.ErrDuplicate
		}
	}
	if a.ObjectID.IsZero() {
		a.ObjectID = primitive.NewObjectID()
	}
	r.docs = append(r.docs, *a)
	return nil
}

func (r *AmbulanceRepo) FindByID(_ context.Context, id string) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	a := r.docs[i]
	return &a, nil
}

func (r *AmbulanceRepo) List(_ context.Context, f models.AmbulanceFilter) ([]models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Ambulance{}
	for _, a := range r.docs {
		if f.Status == "" || a.Status == f.Status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *AmbulanceRepo) Update(_ context.Context, id string, upd models.AmbulanceUpdate, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	a := &r.docs[i]
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	if upd.Location != nil {
		a.Location = *upd.Location
	}
	if upd.DriverName != nil {
		a.DriverName = *upd.DriverName
	}
	if upd.VehicleNumber != nil {
		a.VehicleNumber = *upd.VehicleNumber
	}
	if upd.PhoneNumber != nil {
		a.PhoneNumber = *upd.PhoneNumber
	}
	if upd.LastService != nil {
		ls := *upd.LastService
		a.LastService = &ls
	}
	a.UpdatedAt = now
	return nil
}

func (r *AmbulanceRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.docs = append(r.docs[:i], r.docs[i+1:]...)
	return nil
}

func (r *AmbulanceRepo) ClaimAvailable(_ context.Context, now time.Time) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ClaimErr != nil {
		return nil, r.ClaimErr
	}
	for i := range r.docs {
		if r.docs[i].Status == models.AmbulanceAvailable && r.docs[i].ID != "" {
			r.docs[i].Status = models.AmbulanceOnCall
			r.docs[i].UpdatedAt = now
			a := r.docs[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (r *AmbulanceRepo) Release(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.docs {
		if r.docs[i].ID == id && r.docs[i].Status == models.AmbulanceOnCall {
			r.docs[i].Status = models.AmbulanceAvailable
			r.docs[i].UpdatedAt = now
			return nil
		}
	}
	return repository.ErrNotFound
}

type AppointmentRepo struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Appointment
}

func (r *AppointmentRepo) Insert(_ context.Context, a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	r.docs[a.ID] = *a
	return nil
}

func (r *AppointmentRepo) FindByID(_ context.Context, id string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	a, ok := r.docs[oid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AppointmentRepo) List(_ context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range r.docs {
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *AppointmentRepo) FindSlotHolder(_ context.Context, slot models.Slot, excludeID string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.docs {
		if id.Hex() == excludeID || !a.Holds() {
			continue
		}
		if a.Slot() == slot {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *AppointmentRepo) Update(_ context.Context, id string, upd models.AppointmentUpdate, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	a, ok := r.docs[oid]
	if !ok {
		return repository.ErrNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.Status, upd.Status)
	set(&a.PaymentStatus, upd.PaymentStatus)
	set(&a.PaymentMethod, upd.PaymentMethod)
	set(&a.TransactionHash, upd.TransactionHash)
	set(&a.Notes, upd.Notes)
	set(&a.Date, upd.Date)
	set(&a.Time, upd.Time)
	a.UpdatedAt = &now
	r.docs[oid] = a
	return nil
}

type EmergencyCallRepo struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.EmergencyCall

	// InsertErr, when set, is returned by Insert.
	InsertErr error
}

func (r *EmergencyCallRepo) Insert(_ context.Context, call *models.EmergencyCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return r.InsertErr
	}
	if call.ID.IsZero() {
		call.ID = primitive.NewObjectID()
	}
	r.docs[call.ID] = *call
	return nil
}

func (r *EmergencyCallRepo) FindByID(_ context.Context, id string) (*models.EmergencyCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	call, ok := r.docs[oid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &call, nil
}

func (r *EmergencyCallRepo) sorted(keep func(models.EmergencyCall) bool, newestFirst bool) []models.EmergencyCall {
	out := []models.EmergencyCall{}
	for _, c := range r.docs {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *EmergencyCallRepo) List(_ context.Context, f models.EmergencyFilter) ([]models.EmergencyCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(c models.EmergencyCall) bool {
		if f.Status != "" && c.Status != f.Status {
			return false
		}
		if f.UserID != "" && (c.UserID == nil || *c.UserID != f.UserID) {
			return false
		}
		return true
	}, true), nil
}

func (r *EmergencyCallRepo) Pending(_ context.Context, limit int) ([]models.EmergencyCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(c models.EmergencyCall) bool { return c.Status == models.CallPending }, false)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *EmergencyCallRepo) AssignAmbulance(_ context.Context, id, ambulanceID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	call, ok := r.docs[oid]
	if !ok || call.Status != models.CallPending {
		return repository.ErrNotFound
	}
	call.Status = models.CallDispatched
	call.AmbulanceID = &ambulanceID
	call.DispatchedAt = &now
	call.UpdatedAt = now
	r.docs[oid] = call
	return nil
}

func (r *EmergencyCallRepo) Transition(_ context.Context, id string, from []string, to string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	call, ok := r.docs[oid]
	if !ok || !contains(from, call.Status) {
		return repository.ErrNotFound
	}
	call.Status = to
	call.UpdatedAt = now
	if to == models.CallCompleted {
		call.CompletedAt = &now
	}
	r.docs[oid] = call
	return nil
}

func (r *EmergencyCallRepo) CountActiveForAmbulance(_ context.Context, ambulanceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.docs {
		if c.AmbulanceID != nil && *c.AmbulanceID == ambulanceID && contains(models.ActiveCallStatuses, c.Status) {
			n++
		}
	}
	return n, nil
}

// Len is the number of stored calls.
func (r *EmergencyCallRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

type UserRepo struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.User
}

func (r *UserRepo) Insert(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.docs {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.docs[u.ID] = *u
	return nil
}

func (r *UserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	u, ok := r.docs[oid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.docs {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) List(_ context.Context, f models.UserFilter) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.User{}
	for _, u := range r.docs {
		if f.Role == "" || u.Role == f.Role {
			out = append(out, u)
		}
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
