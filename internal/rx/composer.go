// Package rx builds a prescription from an editable list of medication lines.
package rx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/otcheredev/clinic-console/internal/models"
)

var (
	// ErrNoDrugs means every line has an empty drug name.
	ErrNoDrugs = errors.New("add at least one drug")
	// ErrLastLine is returned when removing the only remaining line.
	ErrLastLine = errors.New("cannot remove the last medication line")
	ErrBadIndex = errors.New("medication line out of range")
	ErrBadField = errors.New("unknown medication field")
)

// Form field names. Each line contributes one value per field, in order.
const (
	FieldDrug     = "drug[]"
	FieldDose     = "dose[]"
	FieldFreq     = "freq[]"
	FieldDuration = "duration[]"
	FieldNotes    = "notes"
	FieldOp       = "op"
)

// Composer is the editable state of one prescription.
type Composer struct {
	Lines   []models.Medication
	Notes   string
	SavedID string
}

// New returns a composer seeded with one blank line.
func New() *Composer {
	return &Composer{Lines: []models.Medication{{}}}
}

func (c *Composer) Append() {
	c.Lines = append(c.Lines, models.Medication{})
}

func (c *Composer) Remove(i int) error {
	if i < 0 || i >= len(c.Lines) {
		return ErrBadIndex
	}
	if len(c.Lines) == 1 {
		return ErrLastLine
	}
	c.Lines = append(c.Lines[:i:i], c.Lines[i+1:]...)
	return nil
}

// Update sets one field of line i. field is one of drug, dose, freq, duration.
func (c *Composer) Update(i int, field, value string) error {
	if i < 0 || i >= len(c.Lines) {
		return ErrBadIndex
	}
	line := &c.Lines[i]
	switch field {
	case "drug":
		line.Drug = value
	case "dose":
		line.Dose = value
	case "freq":
		line.Freq = value
	case "duration":
		line.Duration = value
	default:
		return fmt.Errorf("%w: %s", ErrBadField, field)
	}
	return nil
}

// CanRemove reports whether a remove control should be offered.
func (c *Composer) CanRemove() bool {
	return len(c.Lines) > 1
}

// Valid returns the lines whose trimmed drug name is non-empty.
func (c *Composer) Valid() ([]models.Medication, error) {
	out := make([]models.Medication, 0, len(c.Lines))
	for _, m := range c.Lines {
		if strings.TrimSpace(m.Drug) != "" {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoDrugs
	}
	return out, nil
}

// Saver creates a prescription for an appointment.
type Saver interface {
	CreatePrescription(ctx context.Context, appointmentID string, in models.PrescriptionInput) (*models.Prescription, error)
}

// Save validates locally and then submits once. The returned id enables printing.
func (c *Composer) Save(ctx context.Context, api Saver, appointmentID string) (string, error) {
	meds, err := c.Valid()
	if err != nil {
		return "", err
	}
	rx, err := api.CreatePrescription(ctx, appointmentID, models.PrescriptionInput{
		Medications: meds,
		Notes:       c.Notes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save prescription: %w", err)
	}
	c.SavedID = rx.ID
	return rx.ID, nil
}

// Op kinds.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpSave   = "save"
)

// Op is the action a composer form submission asks for.
type Op struct {
	Kind  string
	Index int
}

// ParseOp reads "add", "save" or "remove:<index>". Anything else is a save.
func ParseOp(s string) Op {
	switch {
	case s == OpAdd:
		return Op{Kind: OpAdd}
	case strings.HasPrefix(s, "remove:"):
		i, err := strconv.Atoi(strings.TrimPrefix(s, "remove:"))
		if err != nil {
			return Op{Kind: OpSave}
		}
		return Op{Kind: OpRemove, Index: i}
	default:
		return Op{Kind: OpSave}
	}
}

// FromForm rebuilds the composer from the parallel field arrays of a posted form.
func FromForm(form url.Values) (*Composer, Op) {
	drugs, doses := form[FieldDrug], form[FieldDose]
	freqs, durations := form[FieldFreq], form[FieldDuration]
	n := max(len(drugs), len(doses), len(freqs), len(durations))

	c := &Composer{Notes: form.Get(FieldNotes)}
	for i := 0; i < n; i++ {
		c.Lines = append(c.Lines, models.Medication{
			Drug:     at(drugs, i),
			Dose:     at(doses, i),
			Freq:     at(freqs, i),
			Duration: at(durations, i),
		})
	}
	if len(c.Lines) == 0 {
		c.Lines = []models.Medication{{}}
	}
	return c, ParseOp(form.Get(FieldOp))
}

// Apply runs an add or remove op. Save is left to the caller.
func (c *Composer) Apply(op Op) error {
	switch op.Kind {
	case OpAdd:
		c.Append()
	case OpRemove:
		return c.Remove(op.Index)
	}
	return nil
}

func at(vals []string, i int) string {
	if i < len(vals) {
		return vals[i]
	}
	return ""
}
