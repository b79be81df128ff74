package services

import (
	"strings"
	"time"

	"aeternum/models"
	"aeternum/util"
)

type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

/*
* Trim every field in place
* Fail if any of them is empty
 */
func requireFields(fields ...*string) error {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
		if *f == "" {
			return validationError(util.MISSING_REQUIRED_FIELDS)
		}
	}
	return nil
}

func requireActor(actor *models.Actor) error {
	if actor == nil {
		return unauthorizedError(util.UNAUTHORIZED)
	}
	return nil
}

func requireStaff(actor *models.Actor) error {
	if !actor.IsStaff() {
		return unauthorizedError(util.UNAUTHORIZED)
	}
	return nil
}

// trimmed returns nil for a nil or blank value.
func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
