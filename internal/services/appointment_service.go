package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/rx"
	"golang.org/x/sync/errgroup"
)

type AppointmentAPI interface {
	ListAppointments(ctx context.Context, q models.AppointmentQuery) ([]models.Appointment, error)
	ListPatients(ctx context.Context, q models.PatientQuery) ([]models.Patient, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateAppointment(ctx context.Context, in models.AppointmentInput) (*models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id, status string) error
	CreatePrescription(ctx context.Context, appointmentID string, in models.PrescriptionInput) (*models.Prescription, error)
	PrescriptionPDF(ctx context.Context, id string) ([]byte, string, error)
}

type AppointmentService struct {
	api   AppointmentAPI
	audit *Auditor
	// Location interprets the booking form's date and time.
	Location *time.Location
}

func NewAppointmentService(api AppointmentAPI, audit AuditRecorder, actor *models.UserProfile) *AppointmentService {
	return &AppointmentService{api: api, audit: NewAuditor(audit, actor), Location: time.Local}
}

// AppointmentRow is an appointment with its names resolved.
type AppointmentRow struct {
	models.Appointment
	PatientName string
	DoctorName  string
	When        string
}

// Board is the appointments page data.
type Board struct {
	Rows     []AppointmentRow
	Patients []models.Patient
	Doctors  []models.User
	Filter   models.AppointmentQuery
}

// CleanFilter drops dates that are not YYYY-MM-DD.
func CleanFilter(q models.AppointmentQuery) models.AppointmentQuery {
	valid := func(s string) string {
		s = strings.TrimSpace(s)
		if _, err := time.Parse(time.DateOnly, s); err != nil {
			return ""
		}
		return s
	}
	return models.AppointmentQuery{StartDate: valid(q.StartDate), EndDate: valid(q.EndDate)}
}

// Board loads appointments, patients and staff concurrently. Doctors are the
// staff whose roles contain "doctor".
func (s *AppointmentService) Board(ctx context.Context, filter models.AppointmentQuery) (*Board, error) {
	b := &Board{Filter: CleanFilter(filter)}
	var users []models.User

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appts, err := s.api.ListAppointments(gctx, b.Filter)
		if err != nil {
			return fmt.Errorf("appointments: %w", err)
		}
		b.Rows = make([]AppointmentRow, len(appts))
		for i, a := range appts {
			b.Rows[i] = AppointmentRow{Appointment: a}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		b.Patients, err = s.api.ListPatients(gctx, models.PatientQuery{})
		if err != nil {
			return fmt.Errorf("patients: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = s.api.ListUsers(gctx)
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.HasRole(models.RoleDoctor) {
			b.Doctors = append(b.Doctors, u)
		}
	}
	patientNames := make(map[string]string, len(b.Patients))
	for _, p := range b.Patients {
		patientNames[p.ID] = p.Name
	}
	userNames := make(map[string]string, len(users))
	for _, u := range users {
		userNames[u.ID] = u.Username
	}
	for i := range b.Rows {
		r := &b.Rows[i]
		r.PatientName = lookupName(patientNames, r.PatientID)
		r.DoctorName = lookupName(userNames, r.DoctorID)
		r.When = r.StartTime
		if t, ok := r.Start(); ok {
			r.When = t.In(s.Location).Format("Mon 02 Jan 2006 15:04")
		}
	}
	return b, nil
}

func lookupName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return "Unknown"
}

// BookingForm is the schedule form as submitted. Date is YYYY-MM-DD and Time HH:MM.
type BookingForm struct {
	PatientID string
	DoctorID  string
	Date      string
	Time      string
	Reason    string
}

// Input converts the form, interpreting date and time in loc and sending UTC.
func (f BookingForm) Input(loc *time.Location) (models.AppointmentInput, error) {
	if f.PatientID == "" || f.DoctorID == "" || f.Date == "" || f.Time == "" {
		return models.AppointmentInput{}, fmt.Errorf("%w: patient, doctor, date and time", ErrRequired)
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", f.Date+" "+f.Time, loc)
	if err != nil {
		return models.AppointmentInput{}, fmt.Errorf("%w: date or time", ErrInvalidInput)
	}
	return models.AppointmentInput{
		PatientID: f.PatientID,
		DoctorID:  f.DoctorID,
		StartTime: t.UTC().Format("2006-01-02T15:04:05.000Z"),
		Detail:    strings.TrimSpace(f.Reason),
	}, nil
}

func (s *AppointmentService) Book(ctx context.Context, form BookingForm) error {
	in, err := form.Input(s.Location)
	if err != nil {
		return err
	}
	start := time.Now()
	a, err := s.api.CreateAppointment(ctx, in)
	ref := in.PatientID
	if a != nil {
		ref = a.ID
	}
	s.audit.Track(ctx, "appointment.create", "appointment", ref, start, err)
	return err
}

func (s *AppointmentService) UpdateStatus(ctx context.Context, id, status string) error {
	if !slices.Contains(models.AppointmentStatuses, status) {
		return fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}
	start := time.Now()
	err := s.api.UpdateAppointmentStatus(ctx, id, status)
	s.audit.Track(ctx, "appointment.status", "appointment", id, start, err)
	return err
}

// Prescribe saves the composer once for the appointment and returns the new id.
func (s *AppointmentService) Prescribe(ctx context.Context, appointmentID string, c *rx.Composer) (string, error) {
	start := time.Now()
	id, err := c.Save(ctx, s.api, appointmentID)
	if errors.Is(err, rx.ErrNoDrugs) {
		return "", err
	}
	s.audit.Track(ctx, "prescription.create", "appointment", appointmentID, start, err)
	return id, err
}

func (s *AppointmentService) PrescriptionPDF(ctx context.Context, id string) ([]byte, string, error) {
	return s.api.PrescriptionPDF(ctx, id)
}
