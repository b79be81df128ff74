package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aeternum/models"
	"aeternum/repository/memory"
	"aeternum/role"
	"aeternum/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminActor    = &models.Actor{UserID: "admin-1", Role: role.Admin}
	hospitalActor = &models.Actor{UserID: "hosp-1", Role: role.Hospital}
	patientActor  = &models.Actor{UserID: "patient-1", Role: role.Patient}
	doctorActor   = &models.Actor{UserID: "doctor-1", Role: role.Doctor}
)

func fixedClock(t time.Time) clock {
	return func() time.Time { return t }
}

func addAmbulance(t *testing.T, store *memory.Store, id, status string, updatedAt time.Time) {
	t.Helper()
	require.NoError(t, store.Ambulances.Insert(context.Background(), &models.Ambulance{
		ID:            id,
		DriverName:    "Driver " + id,
		VehicleNumber: "VN-" + id,
		PhoneNumber:   "555-" + id,
		Status:        status,
		Location:      "Depot",
		UpdatedAt:     updatedAt,
	}))
}

func validEmergency() EmergencyRequest {
	return EmergencyRequest{
		PatientName:   "Jane Roe",
		ContactNumber: "555-0100",
		Location:      "5th Avenue",
		EmergencyType: "cardiac",
	}
}

func TestDispatch_ClaimsAvailableAmbulance(t *testing.T) {
	store := memory.New()
	addAmbulance(t, store, "AMB-1001", models.AmbulanceAvailable, time.Now())
	svc := NewDispatchService(store.Ambulances, store.Calls)

	result, err := svc.Dispatch(context.Background(), nil, validEmergency())
	require.NoError(t, err)
	require.True(t, result.Dispatched())

	assert.Equal(t, models.CallDispatched, result.Call.Status)
	require.NotNil(t, result.Call.AmbulanceID)
	assert.Equal(t, "AMB-1001", *result.Call.AmbulanceID)
	assert.NotNil(t, result.Call.DispatchedAt)
	assert.Nil(t, result.Call.UserID)

	amb, err := store.Ambulances.FindByID(context.Background(), "AMB-1001")
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceOnCall, amb.Status)
}

func TestDispatch_QueuesWhenFleetBusy(t *testing.T) {
	store := memory.New()
	addAmbulance(t, store, "AMB-1001", models.AmbulanceOnCall, time.Now())
	svc := NewDispatchService(store.Ambulances, store.Calls)

	result, err := svc.Dispatch(context.Background(), patientActor, validEmergency())
	require.NoError(t, err)

	assert.False(t, result.Dispatched())
	assert.Equal(t, models.CallPending, result.Call.Status)
	assert.Nil(t, result.Call.AmbulanceID)
	require.NotNil(t, result.Call.UserID)
	assert.Equal(t, patientActor.UserID, *result.Call.UserID)
	assert.Equal(t, 1, store.Calls.Len())
}

func TestDispatch_SkipsAmbulanceWithoutID(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Ambulances.Insert(context.Background(), &models.Ambulance{
		DriverName: "Legacy", VehicleNumber: "OLD-1", Status: models.AmbulanceAvailable, Location: "Depot",
	}))
	svc := NewDispatchService(store.Ambulances, store.Calls)

	result, err := svc.Dispatch(context.Background(), nil, validEmergency())
	require.NoError(t, err)
	assert.False(t, result.Dispatched())
	assert.Nil(t, result.Call.AmbulanceID)

	legacy, err := store.Ambulances.List(context.Background(), models.AmbulanceFilter{})
	require.NoError(t, err)
	require.Len(t, legacy, 1)
	assert.Equal(t, models.AmbulanceAvailable, legacy[0].Status)

	addAmbulance(t, store, "AMB-1001", models.AmbulanceAvailable, time.Now())
	result, err = svc.Dispatch(context.Background(), nil, validEmergency())
	require.NoError(t, err)
	require.True(t, result.Dispatched())
	assert.Equal(t, "AMB-1001", result.Ambulance.ID)
}

func TestDispatch_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EmergencyRequest)
	}{
		{"patient name", func(r *EmergencyRequest) { r.PatientName = "" }},
		{"contact number", func(r *EmergencyRequest) { r.ContactNumber = "  " }},
		{"location", func(r *EmergencyRequest) { r.Location = "" }},
		{"emergency type", func(r *EmergencyRequest) { r.EmergencyType = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			addAmbulance(t, store, "AMB-1001", models.AmbulanceAvailable, time.Now())
			svc := NewDispatchService(store.Ambulances, store.Calls)

			req := validEmergency()
			tt.mutate(&req)
			_, err := svc.Dispatch(context.Background(), nil, req)

			require.Error(t, err)
			assert.Equal(t, Validation, KindOf(err))
			assert.Equal(t, util.MISSING_REQUIRED_FIELDS, err.Error())
			assert.Equal(t, 0, store.Calls.Len())

			amb, _ := store.Ambulances.FindByID(context.Background(), "AMB-1001")
			assert.Equal(t, models.AmbulanceAvailable, amb.Status)
		})
	}
}

func TestDispatch_ReleasesAmbulanceWhenInsertFails(t *testing.T) {
	store := memory.New()
	addAmbulance(t, store, "AMB-1001", models.AmbulanceAvailable, time.Now())
	store.Calls.InsertErr = errors.New("write failed")
	svc := NewDispatchService(store.Ambulances, store.Calls)

	_, err := svc.Dispatch(context.Background(), nil, validEmergency())
	require.Error(t, err)
	assert.Equal(t, Internal, KindOf(err))

	amb, err := store.Ambulances.FindByID(context.Background(), "AMB-1001")
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceAvailable, amb.Status)
}

func TestDispatch_ClaimErrorCreatesNoCall(t *testing.T) {
	store := memory.New()
	store.Ambulances.ClaimErr = errors.New("connection reset")
	svc := NewDispatchService(store.Ambulances, store.Calls)

	_, err := svc.Dispatch(context.Background(), nil, validEmergency())
	require.Error(t, err)
	assert.Equal(t, 0, store.Calls.Len())
}

func TestDispatch_ConcurrentRequestsNeverShareAnAmbulance(t *testing.T) {
	store := memory.New()
	addAmbulance(t, store, "AMB-1001", models.AmbulanceAvailable, time.Now())
	addAmbulance(t, store, "AMB-1002", models.AmbulanceAvailable, time.Now())
	svc := NewDispatchService(store.Ambulances, store.Calls)

	const requests = 10
	var wg sync.WaitGroup
	results := make([]*DispatchResult, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.Dispatch(context.Background(), nil, validEmergency())
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	pending := 0
	for _, r := range results {
		require.NotNil(t, r)
		if !r.Dispatched() {
			pending++
			continue
		}
		assert.False(t, seen[r.Ambulance.ID], "ambulance %s dispatched twice", r.Ambulance.ID)
		seen[r.Ambulance.ID] = true
	}
	assert.Len(t, seen, 2)
	assert.Equal(t, requests-2, pending)
}

func TestListCalls_ScopesNonStaffToOwnCalls(t *testing.T) {
	store := memory.New()
	svc := NewDispatchService(store.Ambulances, store.Calls)
	ctx := context.Background()

	_, err := svc.Dispatch(ctx, patientActor, validEmergency())
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, doctorActor, validEmergency())
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, nil, validEmergency())
	require.NoError(t, err)

	own, err := svc.ListCalls(ctx, patientActor, "")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, patientActor.UserID, *own[0].UserID)

	all, err := svc.ListCalls(ctx, hospitalActor, models.CallPending)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.ListCalls(ctx, nil, "")
	assert.Equal(t, Unauthorized, KindOf(err))
}

func TestUpdateCallStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("completing releases the ambulance", func(t *testing.T) {
		store := memory.New()
		addAmbulance(t, store, "AMB-1001", models.AmbulanceAvailable, time.Now())
		svc := NewDispatchService(store.Ambulances, store.Calls)
		result, err := svc.Dispatch(ctx, nil, validEmergency())
		require.NoError(t, err)

		call, err := svc.UpdateCallStatus(ctx, hospitalActor, UpdateCallInput{ID: result.Call.ID.Hex(), Status: models.CallInProgress})
		require.NoError(t, err)
		assert.Equal(t, models.CallInProgress, call.Status)

		call, err = svc.UpdateCallStatus(ctx, hospitalActor, UpdateCallInput{ID: result.Call.ID.Hex(), Status: models.CallCompleted})
		require.NoError(t, err)
		assert.Equal(t, models.CallCompleted, call.Status)
		assert.NotNil(t, call.CompletedAt)

		amb, _ := store.Ambulances.FindByID(ctx, "AMB-1001")
		assert.Equal(t, models.AmbulanceAvailable, amb.Status)
	})

	t.Run("pending call cannot go in progress", func(t *testing.T) {
		store := memory.New()
		svc := NewDispatchService(store.Ambulances, store.Calls)
		result, err := svc.Dispatch(ctx, nil, validEmergency())
		require.NoError(t, err)

		_, err = svc.UpdateCallStatus(ctx, adminActor, UpdateCallInput{ID: result.Call.ID.Hex(), Status: models.CallInProgress})
		assert.Equal(t, Conflict, KindOf(err))
		assert.Equal(t, util.INVALID_STATUS_TRANSITION, err.Error())
	})

	t.Run("completed call is final", func(t *testing.T) {
		store := memory.New()
		svc := NewDispatchService(store.Ambulances, store.Calls)
		result, err := svc.Dispatch(ctx, nil, validEmergency())
		require.NoError(t, err)
		_, err = svc.UpdateCallStatus(ctx, adminActor, UpdateCallInput{ID: result.Call.ID.Hex(), Status: models.CallCompleted})
		require.NoError(t, err)

		_, err = svc.UpdateCallStatus(ctx, adminActor, UpdateCallInput{ID: result.Call.ID.Hex(), Status: models.CallCompleted})
		assert.Equal(t, Conflict, KindOf(err))
	})

	t.Run("errors", func(t *testing.T) {
		store := memory.New()
		svc := NewDispatchService(store.Ambulances, store.Calls)

		_, err := svc.UpdateCallStatus(ctx, patientActor, UpdateCallInput{ID: "x", Status: models.CallCompleted})
		assert.Equal(t, Unauthorized, KindOf(err))

		_, err = svc.UpdateCallStatus(ctx, adminActor, UpdateCallInput{Status: models.CallCompleted})
		assert.Equal(t, Validation, KindOf(err))

		_, err = svc.UpdateCallStatus(ctx, adminActor, UpdateCallInput{ID: "abc", Status: "teleported"})
		assert.Equal(t, util.INVALID_EMERGENCY_STATUS, err.Error())

		_, err = svc.UpdateCallStatus(ctx, adminActor, UpdateCallInput{ID: "abc", Status: models.CallPending})
		assert.Equal(t, Conflict, KindOf(err))

		_, err = svc.UpdateCallStatus(ctx, adminActor, UpdateCallInput{ID: "65a000000000000000000000", Status: models.CallCompleted})
		assert.Equal(t, NotFound, KindOf(err))
	})
}

func TestDispatchPending_OldestFirstUntilFleetBusy(t *testing.T) {
	store := memory.New()
	svc := NewDispatchService(store.Ambulances, store.Calls)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		svc.now = fixedClock(base.Add(time.Duration(i) * time.Minute))
		r, err := svc.Dispatch(ctx, nil, validEmergency())
		require.NoError(t, err)
		ids = append(ids, r.Call.ID.Hex())
	}
	addAmbulance(t, store, "AMB-1001", models.AmbulanceAvailable, base)
	addAmbulance(t, store, "AMB-1002", models.AmbulanceAvailable, base)

	n, err := svc.DispatchPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, _ := store.Calls.FindByID(ctx, ids[0])
	second, _ := store.Calls.FindByID(ctx, ids[1])
	third, _ := store.Calls.FindByID(ctx, ids[2])
	assert.Equal(t, models.CallDispatched, first.Status)
	assert.Equal(t, models.CallDispatched, second.Status)
	assert.Equal(t, models.CallPending, third.Status)
	assert.Nil(t, third.AmbulanceID)
}

func TestReleaseStranded(t *testing.T) {
	store := memory.New()
	svc := NewDispatchService(store.Ambulances, store.Calls)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	// on a live call
	addAmbulance(t, store, "AMB-1001", models.AmbulanceAvailable, now.Add(-time.Hour))
	_, err := svc.Dispatch(ctx, nil, validEmergency())
	require.NoError(t, err)
	require.NoError(t, store.Ambulances.Update(ctx, "AMB-1001", models.AmbulanceUpdate{}, now.Add(-time.Hour)))

	// stranded
	addAmbulance(t, store, "AMB-1002", models.AmbulanceOnCall, now.Add(-time.Hour))
	// within grace
	addAmbulance(t, store, "AMB-1003", models.AmbulanceOnCall, now.Add(-30*time.Second))

	n, err := svc.ReleaseStranded(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[string]string{
		"AMB-1001": models.AmbulanceOnCall,
		"AMB-1002": models.AmbulanceAvailable,
		"AMB-1003": models.AmbulanceOnCall,
	} {
		amb, err := store.Ambulances.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, amb.Status, id)
	}
}
