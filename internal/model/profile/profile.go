// Package profile holds the durable records owned by a user profile.
package profile

import (
	"regexp"
	"time"
)

// MaxEmergencyContacts caps the contacts a profile may hold.
const MaxEmergencyContacts = 2

// MaxProofFileSize caps the attached prescription proof, in bytes.
const MaxProofFileSize = 5 * 1024 * 1024

var clockTime = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// User is the simulated logged-in identity.
type User struct {
	Username string `json:"username"`
}

// EmergencyContact is notified out-of-band by the user in a crisis.
type EmergencyContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// FileMeta describes an attached proof of prescription. Content is never stored.
type FileMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Prescription is a medication with a daily reminder time.
//
// The armed reminder handle is runtime state and deliberately absent here.
type Prescription struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Dosage string    `json:"dosage"`
	Time   string    `json:"time"`
	File   *FileMeta `json:"file,omitempty"`
}

// ValidClockTime reports whether s is a 24h "HH:MM" value.
func ValidClockTime(s string) bool {
	return clockTime.MatchString(s)
}

// NextOccurrence returns the next instant at hh:mm in loc, strictly not
// before now. If today's instant already passed it rolls to tomorrow.
func NextOccurrence(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if next.Before(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
