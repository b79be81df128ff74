package role

const (
	Patient  = "patient"
	Doctor   = "doctor"
	Hospital = "hospital"
	Admin    = "admin"
)

var all = []string{Patient, Doctor, Hospital, Admin}

// Valid reports whether r is one of the known roles.
func Valid(r string) bool {
	for _, v := range all {
		if v == r {
			return true
		}
	}
	return false
}

/*
* Staff roles manage the fleet and can see every record
 */
func IsStaff(r string) bool {
	return r == Admin || r == Hospital
}
