package services

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/otcheredev/clinic-console/internal/access"
	"github.com/otcheredev/clinic-console/internal/models"
	"golang.org/x/sync/errgroup"
)

// PatientPageSize is the number of patients per list page.
const PatientPageSize = 10

type PatientAPI interface {
	Me(ctx context.Context) (*models.UserProfile, error)
	ListPatients(ctx context.Context, q models.PatientQuery) ([]models.Patient, error)
	CreatePatient(ctx context.Context, in models.PatientInput) (*models.Patient, error)
	UpdatePatient(ctx context.Context, id string, in models.PatientInput) error
	PatientProfile(ctx context.Context, id string) (*models.PatientProfile, error)
	AddRecord(ctx context.Context, patientID string, in models.RecordInput) (*models.ClinicalRecord, error)
	AddAttachment(ctx context.Context, patientID, fileName, fileType string) (*models.Attachment, error)
}

type PatientService struct {
	api   PatientAPI
	audit *Auditor
	now   func() time.Time
}

func NewPatientService(api PatientAPI, audit AuditRecorder, actor *models.UserProfile) *PatientService {
	return &PatientService{api: api, audit: NewAuditor(audit, actor), now: time.Now}
}

// PatientPage is one page of search results. Page is zero based.
type PatientPage struct {
	Patients []models.Patient
	Query    string
	Page     int
	HasPrev  bool
	HasNext  bool
}

// Search runs the server side search for q and returns page.
func (s *PatientService) Search(ctx context.Context, q string, page int) (PatientPage, error) {
	if page < 0 {
		page = 0
	}
	q = strings.TrimSpace(q)
	out := PatientPage{Query: q, Page: page, HasPrev: page > 0}
	patients, err := s.api.ListPatients(ctx, models.PatientQuery{Q: q, Skip: page * PatientPageSize, Limit: PatientPageSize})
	if err != nil {
		return out, err
	}
	out.Patients = patients
	out.HasNext = len(patients) == PatientPageSize
	return out, nil
}

// PatientForm is the create/edit form as submitted.
type PatientForm struct {
	Name       string
	Mobile     string
	DOB        string
	Gender     string
	BloodGroup string
	Allergies  string
	Address    string
}

// FormFromPatient prefills the edit form.
func FormFromPatient(p models.Patient) PatientForm {
	return PatientForm{
		Name:       p.Name,
		Mobile:     p.Mobile,
		DOB:        p.DOB,
		Gender:     p.Gender,
		BloodGroup: p.BloodGroup,
		Allergies:  strings.Join(p.Allergies, ", "),
		Address:    p.Address,
	}
}

func (f PatientForm) Input() (models.PatientInput, error) {
	in := models.PatientInput{
		Name:       strings.TrimSpace(f.Name),
		Mobile:     strings.TrimSpace(f.Mobile),
		Gender:     f.Gender,
		BloodGroup: f.BloodGroup,
		Allergies:  models.SplitAllergies(f.Allergies),
		Address:    strings.TrimSpace(f.Address),
	}
	if in.Name == "" {
		return in, fmt.Errorf("%w: name", ErrRequired)
	}
	if dob := strings.TrimSpace(f.DOB); dob != "" {
		if _, err := time.Parse(time.DateOnly, dob); err != nil {
			return in, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", ErrInvalidInput)
		}
		in.DOB = &dob
	}
	return in, nil
}

// Save creates a patient when id is empty and updates it otherwise.
func (s *PatientService) Save(ctx context.Context, id string, form PatientForm) error {
	in, err := form.Input()
	if err != nil {
		return err
	}
	start := time.Now()
	if id == "" {
		p, err := s.api.CreatePatient(ctx, in)
		ref := in.Name
		if p != nil {
			ref = p.ID
		}
		s.audit.Track(ctx, "patient.create", "patient", ref, start, err)
		return err
	}
	err = s.api.UpdatePatient(ctx, id, in)
	s.audit.Track(ctx, "patient.update", "patient", id, start, err)
	return err
}

// ProfileView is everything the patient profile page renders.
type ProfileView struct {
	Viewer          *models.UserProfile
	Profile         *models.PatientProfile
	CanViewTimeline bool
	CanAddRecord    bool
}

// Profile re-fetches the viewer for live permission checks alongside the
// patient aggregate.
func (s *PatientService) Profile(ctx context.Context, id string) (*ProfileView, error) {
	var view ProfileView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		me, err := s.api.Me(gctx)
		view.Viewer = me
		return err
	})
	g.Go(func() error {
		p, err := s.api.PatientProfile(gctx, id)
		view.Profile = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(view.Profile.ClinicalRecords, func(i, j int) bool {
		return view.Profile.ClinicalRecords[i].RecordedAt > view.Profile.ClinicalRecords[j].RecordedAt
	})
	view.CanViewTimeline = access.CanViewTimeline(view.Viewer)
	view.CanAddRecord = access.CanAddRecord(view.Viewer)
	return &view, nil
}

// ParseRecordData reads "key: value" lines into a record data object. Lines
// without a colon are joined under "note".
func ParseRecordData(text string) map[string]any {
	data := map[string]any{}
	var notes []string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) == "" {
			notes = append(notes, line)
			continue
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	if len(notes) > 0 {
		data["note"] = strings.Join(notes, "\n")
	}
	return data
}

func (s *PatientService) AddRecord(ctx context.Context, patientID, recordType, text string) error {
	recordType = strings.TrimSpace(recordType)
	if recordType == "" {
		return fmt.Errorf("%w: record type", ErrRequired)
	}
	data := ParseRecordData(text)
	if len(data) == 0 {
		return fmt.Errorf("%w: record details", ErrRequired)
	}
	start := time.Now()
	_, err := s.api.AddRecord(ctx, patientID, models.RecordInput{
		Type: recordType,
		Data: data,
		Date: s.now().UTC().Format(time.RFC3339),
	})
	s.audit.Track(ctx, "patient.record", "patient", patientID, start, err)
	return err
}

func (s *PatientService) AddAttachment(ctx context.Context, patientID, fileName, fileType string) error {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return fmt.Errorf("%w: file name", ErrRequired)
	}
	if fileType == "" {
		fileType = "pdf"
	}
	start := time.Now()
	_, err := s.api.AddAttachment(ctx, patientID, fileName, fileType)
	s.audit.Track(ctx, "patient.attachment", "patient", patientID, start, err)
	return err
}
