package util

// Collections
const (
	AmbulanceCollection     = "ambulances"
	AppointmentCollection   = "appointments"
	EmergencyCallCollection = "emergencyCalls"
	UserCollection          = "users"
)

// Response messages
const (
	MISSING_REQUIRED_FIELDS = "Missing required fields"
	INVALID_REQUEST_BODY    = "Invalid request body"
	INTERNAL_SERVER_ERROR   = "Internal Server Error"
	UNAUTHORIZED            = "Unauthorized"

	MISSING_AMBULANCE_ID      = "Missing ambulance ID"
	AMBULANCE_NOT_FOUND       = "Ambulance not found"
	AMBULANCE_ID_EXISTS       = "Ambulance ID already exists"
	INVALID_AMBULANCE_STATUS  = "Invalid ambulance status"
	INVALID_LAST_SERVICE_DATE = "Invalid lastService date"
	AMBULANCE_CREATED         = "Ambulance created successfully"
	AMBULANCE_UPDATED         = "Ambulance updated successfully"
	AMBULANCE_REMOVED         = "Ambulance removed successfully"

	MISSING_APPOINTMENT_ID     = "Missing appointment ID"
	APPOINTMENT_NOT_FOUND      = "Appointment not found"
	SLOT_ALREADY_BOOKED        = "Appointment slot is already booked"
	NEW_SLOT_ALREADY_BOOKED    = "New appointment slot is already booked"
	NO_CHANGES_MADE            = "No changes made to appointment"
	INVALID_APPOINTMENT_STATUS = "Invalid appointment status"
	APPOINTMENT_UPDATED        = "Appointment updated successfully"

	MISSING_EMERGENCY_CALL_ID = "Missing emergency call ID"
	EMERGENCY_CALL_NOT_FOUND  = "Emergency call not found"
	INVALID_EMERGENCY_STATUS  = "Invalid emergency call status"
	INVALID_STATUS_TRANSITION = "Invalid status transition"
	AMBULANCES_BUSY           = "Emergency request received but all ambulances are currently busy. We will dispatch one as soon as possible."
	EMERGENCY_CALL_UPDATED    = "Emergency call updated successfully"

	EMAIL_ALREADY_IN_USE = "Email already in use"
	INVALID_ROLE         = "Invalid role"
	PASSWORD_TOO_LONG    = "Password must be at most 72 bytes"
	INVALID_CREDENTIALS  = "Invalid email or password"
	LOGGED_OUT           = "Logged out successfully"

	DB_CONNECTION_FAILED = "Failed to connect to MongoDB"
)
