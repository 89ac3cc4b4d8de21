package models

import (
	"strings"
	"time"
)

// Appointment statuses accepted by PATCH /appointments/{id}.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var AppointmentStatuses = []string{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled}

// Appointment start times come back from the backend as naive ISO strings.
type Appointment struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Start parses StartTime, treating naive values as UTC.
func (a Appointment) Start() (time.Time, bool) {
	s := strings.TrimSpace(a.StartTime)
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type AppointmentInput struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	StartTime string `json:"start_time"`
	Detail    string `json:"detail,omitempty"`
}

// AppointmentQuery carries the optional start_date/end_date filter (YYYY-MM-DD).
type AppointmentQuery struct {
	StartDate string
	EndDate   string
}

type StatusUpdate struct {
	Status string `json:"status"`
}

// Medication is one prescription line.
type Medication struct {
	Drug     string `json:"drug"`
	Dose     string `json:"dose"`
	Freq     string `json:"freq"`
	Duration string `json:"duration"`
}

type Prescription struct {
	ID            string       `json:"id"`
	AppointmentID string       `json:"appointment_id"`
	Medications   []Medication `json:"medications"`
	Notes         string       `json:"notes,omitempty"`
}

type PrescriptionInput struct {
	Medications []Medication `json:"medications"`
	Notes       string       `json:"notes"`
}
