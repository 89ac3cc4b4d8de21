package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/clinic-console/internal/access"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/rx"
	"github.com/otcheredev/clinic-console/internal/services"
	"github.com/otcheredev/clinic-console/internal/session"
	"github.com/otcheredev/clinic-console/internal/widgets"
	"github.com/rs/zerolog/log"
)

type AppointmentHandler struct {
	base
	loc *time.Location
}

func NewAppointmentHandler(d Deps) *AppointmentHandler {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	return &AppointmentHandler{base: newBase(d), loc: loc}
}

type appointmentsView struct {
	Board    *services.Board
	Book     widgets.Dialog
	Patients widgets.Select
	Doctors  widgets.Select
	Statuses []widgets.Option
	Rx       widgets.Sheet
	// RxTarget is the appointment the composer writes for.
	RxTarget     string
	Composer     *rx.Composer
	CanPrescribe bool
}

func (h *AppointmentHandler) service(r *http.Request) *services.AppointmentService {
	s := services.NewAppointmentService(h.client(r), h.audit, h.actor(r))
	s.Location = h.loc
	return s
}

func statusOptions() []widgets.Option {
	opts := make([]widgets.Option, len(models.AppointmentStatuses))
	for i, s := range models.AppointmentStatuses {
		opts[i] = widgets.Option{Value: s, Label: title(s)}
	}
	return opts
}

func (h *AppointmentHandler) view(w http.ResponseWriter, r *http.Request, composer *rx.Composer, target string) (appointmentsView, bool) {
	q := r.URL.Query()
	filter := models.AppointmentQuery{StartDate: q.Get("start_date"), EndDate: q.Get("end_date")}

	board, err := h.service(r).Board(r.Context(), filter)
	if err != nil {
		if h.readFailed(w, r, err, "appointments") {
			return appointmentsView{}, false
		}
		board = &services.Board{Filter: services.CleanFilter(filter)}
	}

	patients := make([]widgets.Option, len(board.Patients))
	for i, p := range board.Patients {
		patients[i] = widgets.Option{Value: p.ID, Label: p.Name}
	}
	doctors := make([]widgets.Option, len(board.Doctors))
	for i, d := range board.Doctors {
		doctors[i] = widgets.Option{Value: d.ID, Label: d.Username}
	}

	v := appointmentsView{
		Board:        board,
		Book:         widgets.NewDialog(q, "book"),
		Patients:     widgets.NewSelect("patient_id", patients),
		Doctors:      widgets.NewSelect("doctor_id", doctors),
		Statuses:     statusOptions(),
		Rx:           widgets.NewSheet(q, "rx", widgets.SideRight),
		RxTarget:     q.Get("target"),
		Composer:     composer,
		CanPrescribe: access.CanWritePrescription(h.actor(r)),
	}
	if target != "" {
		v.Rx.Open = true
		v.RxTarget = target
	}
	if v.Composer == nil {
		v.Composer = rx.New()
	}
	return v, true
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r, nil, "")
	if !ok {
		return
	}
	h.render(w, r, "appointments", v, nil)
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	form := services.BookingForm{
		PatientID: r.PostFormValue("patient_id"),
		DoctorID:  r.PostFormValue("doctor_id"),
		Date:      r.PostFormValue("date"),
		Time:      r.PostFormValue("time"),
		Reason:    r.PostFormValue("reason"),
	}
	if err := h.service(r).Book(r.Context(), form); err != nil {
		h.fail(w, r, err, "Failed to book appointment", "/appointments?dialog=book")
		return
	}
	h.done(w, r, "Appointment booked", "/appointments")
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if err := h.service(r).UpdateStatus(r.Context(), chi.URLParam(r, "id"), r.PostFormValue("status")); err != nil {
		h.fail(w, r, err, "Failed to update appointment", "/appointments")
		return
	}
	h.done(w, r, "Appointment updated", "/appointments")
}

// Prescription handles every composer submission. add and remove re-render
// the sheet with the edited lines; save submits once.
func (h *AppointmentHandler) Prescription(w http.ResponseWriter, r *http.Request) {
	if !access.CanWritePrescription(h.actor(r)) {
		h.flash(r, session.FlashError, "Only doctors and clinic admins can write prescriptions")
		h.redirect(w, r, "/appointments")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	composer, op := rx.FromForm(r.PostForm)

	var flash *session.Flash
	if op.Kind == rx.OpSave {
		rxID, err := h.service(r).Prescribe(r.Context(), id, composer)
		switch {
		case h.expired(w, r, err):
			return
		case err != nil:
			if !errors.Is(err, rx.ErrNoDrugs) {
				log.Warn().Err(err).Str("appointment_id", id).Msg("Failed to save prescription")
			}
			flash = errorFlash(err, "Failed to save prescription")
		default:
			flash = &session.Flash{Kind: session.FlashSuccess, Message: fmt.Sprintf("Prescription saved (%s)", rxID)}
		}
	} else if err := composer.Apply(op); err != nil {
		flash = errorFlash(err, "Failed to edit prescription")
	}

	v, ok := h.view(w, r, composer, id)
	if !ok {
		return
	}
	h.render(w, r, "appointments", v, flash)
}

// PrescriptionPDF streams the rendered prescription as a download.
func (h *AppointmentHandler) PrescriptionPDF(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.service(r).PrescriptionPDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "Failed to download prescription", "/appointments")
		return
	}
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename=prescription.pdf`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
