package models

import (
	"cmp"
	"encoding/json"
	"strings"
)

// Patient is a clinic patient. MRN is assigned by the backend and never edited.
type Patient struct {
	ID         string   `json:"id"`
	MRN        string   `json:"mrn"`
	Name       string   `json:"name"`
	DOB        string   `json:"dob,omitempty"`
	Gender     string   `json:"gender,omitempty"`
	BloodGroup string   `json:"blood_group,omitempty"`
	Allergies  []string `json:"allergies"`
	Mobile     string   `json:"mobile,omitempty"`
	Address    string   `json:"address,omitempty"`
}

// PatientInput is the create/update body. MRN is deliberately absent.
type PatientInput struct {
	Name       string   `json:"name"`
	Mobile     string   `json:"mobile"`
	DOB        *string  `json:"dob"`
	Gender     string   `json:"gender"`
	BloodGroup string   `json:"blood_group,omitempty"`
	Allergies  []string `json:"allergies"`
	Address    string   `json:"address,omitempty"`
}

// PatientQuery maps to the skip/limit/q query parameters of GET /patients.
type PatientQuery struct {
	Q     string
	Skip  int
	Limit int
}

// ClinicalRecord is an append-only timeline entry. The backend names the
// kind "type" and the timestamp "date"; "record_type" and "recorded_at"
// are accepted as well.
type ClinicalRecord struct {
	ID         string         `json:"id"`
	RecordType string         `json:"type"`
	Data       map[string]any `json:"data"`
	RecordedAt string         `json:"date"`
}

func (r *ClinicalRecord) UnmarshalJSON(b []byte) error {
	var wire struct {
		ID         string         `json:"id"`
		Type       string         `json:"type"`
		RecordType string         `json:"record_type"`
		Data       map[string]any `json:"data"`
		Date       string         `json:"date"`
		RecordedAt string         `json:"recorded_at"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	r.ID = wire.ID
	r.Data = wire.Data
	r.RecordType = cmp.Or(wire.Type, wire.RecordType)
	r.RecordedAt = cmp.Or(wire.Date, wire.RecordedAt)
	return nil
}

type RecordInput struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
	Date string         `json:"date,omitempty"`
}

type Attachment struct {
	ID         string `json:"id"`
	FileName   string `json:"file_name"`
	FileType   string `json:"file_type"`
	FileURL    string `json:"file_url,omitempty"`
	UploadedAt string `json:"uploaded_at"`
}

// PatientProfile is the aggregate returned by GET /patients/{id}/profile.
type PatientProfile struct {
	Patient
	ClinicalRecords []ClinicalRecord `json:"clinical_records"`
	Appointments    []Appointment    `json:"appointments"`
	Attachments     []Attachment     `json:"attachments"`
}

// SplitAllergies turns a comma separated entry into a trimmed list, dropping blanks.
func SplitAllergies(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
