package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/clinic-console/internal/labimport"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/session"
	"github.com/rs/zerolog/log"
)

type LabImportHandler struct {
	base
	jobs      *labimport.Registry
	history   ImportHistory
	maxUpload int64
}

// recentRuns is how many finished imports the upload page lists.
const recentRuns = 5

func NewLabImportHandler(d Deps) *LabImportHandler {
	limit := d.MaxUpload
	if limit <= 0 {
		limit = 10 << 20
	}
	return &LabImportHandler{base: newBase(d), jobs: d.Imports, history: d.History, maxUpload: limit}
}

type labImportView struct {
	Job    *labimport.Snapshot
	Recent []models.ImportRun
}

func jobHref(id string) string {
	return "/lab-import?" + url.Values{"job": {id}}.Encode()
}

func (h *LabImportHandler) owner(r *http.Request) string {
	return h.actor(r).ID
}

func (h *LabImportHandler) Show(w http.ResponseWriter, r *http.Request) {
	var view labImportView
	if id := r.URL.Query().Get("job"); id != "" {
		snap, ok := h.jobs.Get(h.owner(r), id)
		if !ok {
			h.flash(r, session.FlashError, "That import is no longer available, please upload the file again")
			h.redirect(w, r, "/lab-import")
			return
		}
		view.Job = &snap
	} else if h.history != nil {
		runs, err := h.history.Recent(r.Context(), h.actor(r).Username, recentRuns)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load import history")
		}
		view.Recent = runs
	}

	page := h.page(r, view, nil)
	if view.Job != nil && view.Job.Running() {
		page.Refresh = 1
	}
	h.views.Render(w, http.StatusOK, layoutConsole, "lab_import", page)
}

// Upload parses the posted sheet and stages it for review.
func (h *LabImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := "Please choose a spreadsheet to upload"
		if errors.As(err, &tooLarge) {
			msg = "The file is too large"
		}
		h.flash(r, session.FlashError, msg)
		h.redirect(w, r, "/lab-import")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	sheet, err := labimport.Parse(name, file)
	if err != nil {
		h.fail(w, r, err, "Failed to read file", "/lab-import")
		return
	}
	snap := h.jobs.Stage(h.owner(r), name, sheet)
	log.Info().Str("job_id", snap.ID).Str("file", name).Int("rows", snap.RowCount).Msg("Lab import staged")
	h.redirect(w, r, jobHref(snap.ID))
}

// Start runs a staged import in the background with the caller's token.
func (h *LabImportHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.jobs.Start(h.owner(r), id, h.actor(r).Username, h.client(r)); err != nil {
		h.fail(w, r, err, "Failed to start import", jobHref(id))
		return
	}
	h.redirect(w, r, jobHref(id))
}

// Progress is the polling endpoint for a job.
func (h *LabImportHandler) Progress(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.jobs.Get(h.owner(r), chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, labimport.ErrJobNotFound.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
