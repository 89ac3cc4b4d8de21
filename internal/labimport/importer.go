package labimport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/otcheredev/clinic-console/internal/metrics"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/rs/zerolog/log"
)

// RecordType is the clinical record kind written for every imported row.
const RecordType = "lab_result"

var (
	ErrNoIdentity      = errors.New("no identity column (MRN/Name)")
	ErrPatientNotFound = errors.New("patient not found")
)

// API is the slice of the clinical API the importer needs.
type API interface {
	ListPatients(ctx context.Context, q models.PatientQuery) ([]models.Patient, error)
	AddRecord(ctx context.Context, patientID string, in models.RecordInput) (*models.ClinicalRecord, error)
}

// Progress is published after every row. Success+Fail == Current.
type Progress struct {
	Total   int `json:"total"`
	Current int `json:"current"`
	Success int `json:"success"`
	Fail    int `json:"fail"`
}

func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Current * 100 / p.Total
}

func (p Progress) Done() bool {
	return p.Current == p.Total
}

// RowResult is the outcome of one row. Index is zero based.
type RowResult struct {
	Index     int
	Key       string
	PatientID string
	Err       error
}

type ProgressFunc func(Progress, RowResult)

// Importer writes one lab_result record per sheet row, strictly in order.
type Importer struct {
	api API
	now func() time.Time
}

func NewImporter(api API) *Importer {
	return &Importer{api: api, now: time.Now}
}

// Run processes rows one at a time. A failing row is counted and skipped;
// only cancellation of ctx stops the loop early, between rows.
func (im *Importer) Run(ctx context.Context, rows []Row, onProgress ProgressFunc) (Progress, error) {
	p := Progress{Total: len(rows)}
	stamp := im.now().UTC().Format(time.RFC3339)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return p, err
		}

		res := im.importRow(ctx, row, stamp)
		res.Index = i
		p.Current = i + 1
		if res.Err == nil {
			p.Success++
		} else {
			p.Fail++
			log.Warn().Err(res.Err).Int("row", i+1).Str("key", res.Key).Msg("Lab import row failed")
		}
		metrics.ObserveImportRow(res.Err == nil)

		if onProgress != nil {
			onProgress(p, res)
		}
	}
	return p, nil
}

func (im *Importer) importRow(ctx context.Context, row Row, stamp string) RowResult {
	key, ok := row.SearchKey()
	if !ok {
		return RowResult{Err: ErrNoIdentity}
	}
	res := RowResult{Key: key}

	patients, err := im.api.ListPatients(ctx, models.PatientQuery{Q: key, Limit: 1})
	if err != nil {
		res.Err = fmt.Errorf("patient lookup for %q: %w", key, err)
		return res
	}
	if len(patients) == 0 {
		res.Err = fmt.Errorf("%w: %s", ErrPatientNotFound, key)
		return res
	}
	res.PatientID = patients[0].ID

	_, err = im.api.AddRecord(ctx, res.PatientID, models.RecordInput{
		Type: RecordType,
		Data: row.Data(),
		Date: stamp,
	})
	if err != nil {
		res.Err = fmt.Errorf("upload failed for %q: %w", key, err)
	}
	return res
}
