package models

import (
	"strings"
	"time"
)

// Gender is the self-declared gender on a registration
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the accepted values
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// IDType is the kind of identification document presented
type IDType string

const (
	IDBirthCertificate       IDType = "birth_certificate"
	IDIdentificationDocument IDType = "identification_document"
	IDPassportNumber         IDType = "passport_number"
)

// Valid reports whether t is one of the accepted values
func (t IDType) Valid() bool {
	switch t {
	case IDBirthCertificate, IDIdentificationDocument, IDPassportNumber:
		return true
	}
	return false
}

// Label returns the human readable form used in exports
func (t IDType) Label() string {
	switch t {
	case IDBirthCertificate:
		return "Birth Certificate"
	case IDIdentificationDocument:
		return "Identification Document"
	case IDPassportNumber:
		return "Passport Number"
	}
	return string(t)
}

// DateLayout is the wire format for dates of birth
const DateLayout = "2006-01-02"

// Voter is a registration as stored in the voters table
type Voter struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	DateOfBirth   string    `json:"date_of_birth"`
	Gender        Gender    `json:"gender"`
	Organization  string    `json:"organization"`
	Region        string    `json:"region"`
	Constituency  string    `json:"constituency"`
	IDType        IDType    `json:"id_type"`
	IDNumber      string    `json:"id_number"`
	AgreedToTerms bool      `json:"agreed_to_terms"`
	CreatedAt     time.Time `json:"created_at"`
}

// Normalize trims whitespace and lower-cases the email so the dedup key is stable
func (v *Voter) Normalize() {
	v.FullName = strings.TrimSpace(v.FullName)
	v.Email = strings.ToLower(strings.TrimSpace(v.Email))
	v.DateOfBirth = strings.TrimSpace(v.DateOfBirth)
	v.Organization = strings.TrimSpace(v.Organization)
	v.Region = strings.TrimSpace(v.Region)
	v.Constituency = strings.TrimSpace(v.Constituency)
	v.IDNumber = strings.TrimSpace(v.IDNumber)
	v.Gender = Gender(strings.ToLower(strings.TrimSpace(string(v.Gender))))
	v.IDType = IDType(strings.ToLower(strings.TrimSpace(string(v.IDType))))
}

// Admin is a dashboard operator. Password is only ever populated on the way in.
type Admin struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

// Table names exposed by the record store
const (
	TableVoters = "voters"
	TableAdmins = "admins"
)

// Change event types emitted by the record store realtime feed
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeEvent is a realtime notification about a row in a table
type ChangeEvent struct {
	Table  string         `json:"table"`
	Type   string         `json:"type"`
	Record map[string]any `json:"record,omitempty"`
	At     time.Time      `json:"at"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket message types
const (
	// MessageChange carries a ChangeEvent on the record store feed
	MessageChange         = "change"
	MessagePendingBackups = "pending_backups"
	MessageRecoveryResult = "recovery_result"
	MessageVotersChanged  = "voters_changed"
)
