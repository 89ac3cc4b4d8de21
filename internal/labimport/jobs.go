package labimport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-console/internal/metrics"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/rs/zerolog/log"
)

// Job states.
const (
	StateStaged    = "staged"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateCancelled = "cancelled"
)

var (
	ErrJobNotFound = errors.New("import job not found")
	ErrJobStarted  = errors.New("import job already started")
	ErrShutdown    = errors.New("import registry is shut down")
)

// RunRecorder persists finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.ImportRun) error
}

type job struct {
	id       string
	owner    string
	actor    string
	fileName string
	sheet    *Sheet
	state    string
	progress Progress
	created  time.Time
	started  time.Time
	finished time.Time
}

// Snapshot is a copy of a job's state safe to hand to templates.
type Snapshot struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	State      string    `json:"state"`
	Progress   Progress  `json:"progress"`
	RowCount   int       `json:"row_count"`
	Headers    []string  `json:"-"`
	Preview    []Row     `json:"-"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

func (s Snapshot) Running() bool   { return s.State == StateRunning }
func (s Snapshot) Finished() bool  { return s.State == StateCompleted || s.State == StateCancelled }
func (s Snapshot) Startable() bool { return s.State == StateStaged && s.RowCount > 0 }

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	PreviewRows int
	TTL         time.Duration
	Recorder    RunRecorder
}

// Registry holds staged and running imports. Each started job runs in its own
// goroutine; rows within a job are processed sequentially.
type Registry struct {
	mu          sync.Mutex
	jobs        map[string]*job
	previewRows int
	ttl         time.Duration
	recorder    RunRecorder
	now         func() time.Time

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 10
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		jobs:        make(map[string]*job),
		previewRows: opts.PreviewRows,
		ttl:         opts.TTL,
		recorder:    opts.Recorder,
		now:         time.Now,
		base:        ctx,
		cancel:      cancel,
	}
}

// Stage registers a parsed sheet for owner without starting it.
func (r *Registry) Stage(owner, fileName string, sheet *Sheet) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	j := &job{
		id:       uuid.NewString(),
		owner:    owner,
		fileName: fileName,
		sheet:    sheet,
		state:    StateStaged,
		progress: Progress{Total: len(sheet.Rows)},
		created:  r.now(),
	}
	r.jobs[j.id] = j
	return r.snapshotLocked(j)
}

// Get returns the job if it exists and belongs to owner.
func (r *Registry) Get(owner, id string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok || j.owner != owner {
		return Snapshot{}, false
	}
	return r.snapshotLocked(j), true
}

// Start launches the import in the background using api. actor is recorded
// with the finished run.
func (r *Registry) Start(owner, id, actor string, api API) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrShutdown
	}
	j, ok := r.jobs[id]
	if !ok || j.owner != owner {
		r.mu.Unlock()
		return ErrJobNotFound
	}
	if j.state != StateStaged {
		r.mu.Unlock()
		return ErrJobStarted
	}
	j.state = StateRunning
	j.actor = actor
	j.started = r.now()
	rows := j.sheet.Rows
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(j, rows, NewImporter(api))
	return nil
}

func (r *Registry) run(j *job, rows []Row, im *Importer) {
	defer r.wg.Done()
	metrics.ActiveImports.Inc()
	defer metrics.ActiveImports.Dec()

	final, err := im.Run(r.base, rows, func(p Progress, _ RowResult) {
		r.mu.Lock()
		j.progress = p
		r.mu.Unlock()
	})

	r.mu.Lock()
	j.progress = final
	j.finished = r.now()
	j.state = StateCompleted
	if err != nil {
		j.state = StateCancelled
	}
	run := &models.ImportRun{
		Actor:      j.actor,
		FileName:   j.fileName,
		Total:      final.Total,
		Success:    final.Success,
		Fail:       final.Fail,
		StartedAt:  j.started,
		FinishedAt: j.finished,
	}
	r.mu.Unlock()

	metrics.ImportRuns.Inc()
	log.Info().
		Str("job_id", j.id).
		Str("file", j.fileName).
		Int("success", final.Success).
		Int("fail", final.Fail).
		AnErr("cancelled", err).
		Msg("Lab import finished")

	if r.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.recorder.RecordRun(ctx, run); err != nil {
		log.Error().Err(err).Str("job_id", j.id).Msg("Failed to record import run")
	}
}

// Wait blocks until every started job has finished.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Shutdown cancels running imports between rows and waits for them, or for ctx.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweepLocked drops jobs that are not running and older than the TTL.
func (r *Registry) sweepLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, j := range r.jobs {
		if j.state != StateRunning && j.created.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}

func (r *Registry) snapshotLocked(j *job) Snapshot {
	return Snapshot{
		ID:         j.id,
		FileName:   j.fileName,
		State:      j.state,
		Progress:   j.progress,
		RowCount:   len(j.sheet.Rows),
		Headers:    j.sheet.Headers,
		Preview:    j.sheet.Preview(r.previewRows),
		StartedAt:  j.started,
		FinishedAt: j.finished,
	}
}
