package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aeternum/auth"
	"aeternum/controllers"
	"aeternum/models"
	"aeternum/repository/memory"
	"aeternum/role"
	"aeternum/routes"
	"aeternum/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testCookie = "aeternum_session"

type fakeDiagnostics struct {
	names []string
	err   error
}

func (f fakeDiagnostics) CollectionNames(context.Context) ([]string, error) {
	return f.names, f.err
}

type testAPI struct {
	t      *testing.T
	store  *memory.Store
	users  *services.UserService
	tokens *auth.TokenManager
	router *gin.Engine
}

func newTestAPI(t *testing.T, diag controllers.Diagnostics) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	users := services.NewUserService(store.Users, bcrypt.MinCost)
	tokens := auth.NewTokenManager("0123456789abcdef0123456789abcdef", "aeternum", time.Hour)
	if diag == nil {
		diag = fakeDiagnostics{names: []string{"ambulances"}}
	}
	h := &controllers.Handlers{
		Ambulances:   services.NewAmbulanceService(store.Ambulances),
		Appointments: services.NewAppointmentService(store.Appointments, store.Users),
		Dispatch:     services.NewDispatchService(store.Ambulances, store.Calls),
		Users:        users,
		Tokens:       tokens,
		Diagnostics:  diag,
		Cookie:       controllers.SessionCookie{Name: testCookie},
	}
	r := gin.New()
	routes.Routes(r, h, auth.SessionResolver(tokens, testCookie))
	return &testAPI{t: t, store: store, users: users, tokens: tokens, router: r}
}

// login creates a user with the given role and returns a bearer token for it.
func (a *testAPI) login(email, r string) (string, *models.User) {
	a.t.Helper()
	admin := &models.Actor{Role: role.Admin}
	u, err := a.users.Register(context.Background(), admin, services.RegisterInput{
		Email: email, Password: "pw", Name: email, Role: r,
	})
	require.NoError(a.t, err)
	token, _, err := a.tokens.Issue(u)
	require.NoError(a.t, err)
	return token, u
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testAPI) addAmbulance(id, status string) {
	a.t.Helper()
	require.NoError(a.t, a.store.Ambulances.Insert(context.Background(), &models.Ambulance{
		ID: id, DriverName: "Driver", VehicleNumber: "VN-" + id, PhoneNumber: "555", Status: status, Location: "Depot",
	}))
}

var emergencyBody = map[string]string{
	"patientName":   "Jane Roe",
	"contactNumber": "555-0100",
	"location":      "5th Avenue",
	"emergencyType": "cardiac",
}

func TestEmergency_DispatchThenAmbulanceIsOnCall(t *testing.T) {
	api := newTestAPI(t, nil)
	api.addAmbulance("AMB-1001", models.AmbulanceAvailable)
	staff, _ := api.login("ward@example.com", role.Hospital)

	w := api.do(http.MethodPost, "/api/emergency", "", emergencyBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, models.CallDispatched, body["status"])
	assert.NotEmpty(t, body["id"])
	ambulance := body["ambulance"].(map[string]interface{})
	assert.Equal(t, "AMB-1001", ambulance["id"])
	assert.Equal(t, "Driver", ambulance["driverName"])

	w = api.do(http.MethodGet, "/api/ambulances?id=AMB-1001", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AmbulanceOnCall, decode(t, w)["status"])
}

func TestEmergency_QueuedWhenFleetBusy(t *testing.T) {
	api := newTestAPI(t, nil)
	api.addAmbulance("AMB-1001", models.AmbulanceOnCall)
	staff, _ := api.login("ward@example.com", role.Hospital)

	w := api.do(http.MethodPost, "/api/emergency", "", emergencyBody)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, models.CallPending, body["status"])
	assert.Contains(t, body["message"], "all ambulances are currently busy")

	w = api.do(http.MethodGet, "/api/emergency", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var calls []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &calls))
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0]["ambulanceId"])
	assert.Equal(t, models.CallPending, calls[0]["status"])
}

func TestEmergency_MissingFields(t *testing.T) {
	api := newTestAPI(t, nil)
	w := api.do(http.MethodPost, "/api/emergency", "", map[string]string{"patientName": "Jane"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", decode(t, w)["error"])
	assert.Equal(t, 0, api.store.Calls.Len())
}

func TestEmergency_InsertFailureIsGeneric500(t *testing.T) {
	api := newTestAPI(t, nil)
	api.addAmbulance("AMB-1001", models.AmbulanceAvailable)
	api.store.Calls.InsertErr = errors.New("disk full")

	w := api.do(http.MethodPost, "/api/emergency", "", emergencyBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", decode(t, w)["error"])

	amb, err := api.store.Ambulances.FindByID(context.Background(), "AMB-1001")
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceAvailable, amb.Status)
}

func TestEmergency_CompleteReleasesAmbulance(t *testing.T) {
	api := newTestAPI(t, nil)
	api.addAmbulance("AMB-1001", models.AmbulanceAvailable)
	staff, _ := api.login("ward@example.com", role.Hospital)
	patient, _ := api.login("jane@example.com", role.Patient)

	w := api.do(http.MethodPost, "/api/emergency", "", emergencyBody)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"]

	w = api.do(http.MethodPut, "/api/emergency", patient, map[string]interface{}{"id": id, "status": "completed"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPut, "/api/emergency", staff, map[string]interface{}{"id": id, "status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	w = api.do(http.MethodGet, "/api/ambulances?id=AMB-1001", staff, nil)
	assert.Equal(t, models.AmbulanceAvailable, decode(t, w)["status"])

	w = api.do(http.MethodPut, "/api/emergency", staff, map[string]interface{}{"id": id, "status": "in_progress"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAmbulances_CRUD(t *testing.T) {
	api := newTestAPI(t, nil)
	staff, _ := api.login("ward@example.com", role.Hospital)
	patient, _ := api.login("jane@example.com", role.Patient)

	w := api.do(http.MethodGet, "/api/ambulances", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	create := map[string]string{
		"id": "AMB-2001", "driverName": "Sam", "vehicleNumber": "KA-2001",
		"status": "available", "location": "North",
	}
	w = api.do(http.MethodPost, "/api/ambulances", patient, create)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/api/ambulances", staff, create)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Ambulance created successfully", body["message"])
	assert.Equal(t, "AMB-2001", body["data"].(map[string]interface{})["id"])

	w = api.do(http.MethodPost, "/api/ambulances", staff, create)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPut, "/api/ambulances", staff, map[string]string{"id": "AMB-2001", "status": "maintenance"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ambulance updated successfully", decode(t, w)["message"])

	w = api.do(http.MethodGet, "/api/ambulances?status=maintenance", patient, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "AMB-2001", list[0]["id"])

	w = api.do(http.MethodPut, "/api/ambulances", staff, map[string]string{"id": "AMB-4040", "status": "available"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Ambulance not found", decode(t, w)["error"])

	w = api.do(http.MethodPut, "/api/ambulances", staff, map[string]string{"status": "available"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing ambulance ID", decode(t, w)["error"])

	w = api.do(http.MethodDelete, "/api/ambulances?id=AMB-2001", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ambulance removed successfully", decode(t, w)["message"])

	w = api.do(http.MethodGet, "/api/ambulances?id=AMB-2001", staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppointments_ConflictAndRebook(t *testing.T) {
	api := newTestAPI(t, nil)
	patient, _ := api.login("jane@example.com", role.Patient)
	other, _ := api.login("john@example.com", role.Patient)
	_, doctor := api.login("house@example.com", role.Doctor)

	booking := map[string]string{"doctorId": doctor.ID.Hex(), "date": "2026-05-01", "time": "10:00"}

	w := api.do(http.MethodPost, "/api/appointments", patient, booking)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "confirmed", created["status"])
	assert.Equal(t, "pending", created["paymentStatus"])
	assert.Equal(t, "house@example.com", created["doctor"].(map[string]interface{})["email"])

	w = api.do(http.MethodPost, "/api/appointments", other, booking)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Appointment slot is already booked", decode(t, w)["error"])

	w = api.do(http.MethodPut, "/api/appointments", patient, map[string]string{"id": created["id"].(string), "status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Appointment updated successfully", decode(t, w)["message"])

	w = api.do(http.MethodPost, "/api/appointments", other, booking)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodGet, "/api/appointments", patient, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "cancelled", mine[0]["status"])

	w = api.do(http.MethodPut, "/api/appointments", patient, map[string]string{"id": created["id"].(string)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No changes made to appointment", decode(t, w)["error"])
}

func TestUsersAndSession(t *testing.T) {
	api := newTestAPI(t, nil)
	admin, _ := api.login("root@example.com", role.Admin)

	w := api.do(http.MethodPost, "/api/users", "", map[string]string{"email": "Jane@Example.com", "password": "s3cret", "name": "Jane"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "jane@example.com", body["email"])
	assert.Equal(t, role.Patient, body["role"])

	w = api.do(http.MethodPost, "/api/users", "", map[string]string{"email": "jane@example.com", "password": "x", "name": "J"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/users", "", map[string]string{"email": "long@example.com", "password": strings.Repeat("p", 80), "name": "L"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at most 72 bytes", decode(t, w)["error"])

	w = api.do(http.MethodPost, "/api/users", "", map[string]string{"email": "boss@example.com", "password": "x", "name": "B", "role": "admin"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w)["error"])

	w = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@example.com", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode(t, w)
	token := session["token"].(string)
	assert.NotEmpty(t, token)
	assert.Contains(t, w.Header().Get("Set-Cookie"), testCookie+"=")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "HttpOnly")

	w = api.do(http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jane@example.com", decode(t, w)["email"])

	w = api.do(http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	w = api.do(http.MethodGet, "/api/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTestDB(t *testing.T) {
	t.Run("admin sees collections", func(t *testing.T) {
		api := newTestAPI(t, fakeDiagnostics{names: []string{"ambulances", "users"}})
		admin, _ := api.login("root@example.com", role.Admin)
		staff, _ := api.login("ward@example.com", role.Hospital)

		w := api.do(http.MethodGet, "/api/test-db", staff, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = api.do(http.MethodGet, "/api/test-db", admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{"ambulances", "users"}, decode(t, w)["collections"])
	})

	t.Run("failure carries details", func(t *testing.T) {
		api := newTestAPI(t, fakeDiagnostics{err: errors.New("server selection timeout")})
		admin, _ := api.login("root@example.com", role.Admin)

		w := api.do(http.MethodGet, "/api/test-db", admin, nil)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Failed to connect to MongoDB", body["error"])
		assert.Equal(t, "server selection timeout", body["details"].(map[string]interface{})["message"])
	})
}

func TestAuth_StaleCookieDoesNotBlockLoginOrLogout(t *testing.T) {
	api := newTestAPI(t, nil)
	_, err := api.users.Register(context.Background(), nil, services.RegisterInput{Email: "jane@example.com", Password: "s3cret", Name: "Jane"})
	require.NoError(t, err)

	rotated := auth.NewTokenManager("an-old-secret-that-was-rotated-out", "aeternum", time.Hour)
	_, u := api.login("john@example.com", role.Patient)
	stale, _, err := rotated.Issue(u)
	require.NoError(t, err)

	send := func(path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(&http.Cookie{Name: testCookie, Value: stale})
		w := httptest.NewRecorder()
		api.router.ServeHTTP(w, req)
		return w
	}

	w := send("/api/auth/login", map[string]string{"email": "jane@example.com", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["token"])

	w = send("/api/auth/logout", map[string]string{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Logged out successfully", decode(t, w)["message"])
}
