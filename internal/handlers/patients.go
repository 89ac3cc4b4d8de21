package handlers

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/services"
	"github.com/otcheredev/clinic-console/internal/session"
	"github.com/otcheredev/clinic-console/internal/widgets"
)

type PatientHandler struct {
	base
}

func NewPatientHandler(d Deps) *PatientHandler {
	return &PatientHandler{base: newBase(d)}
}

var (
	genderOptions = []widgets.Option{{Value: "male", Label: "Male"}, {Value: "female", Label: "Female"}, {Value: "other", Label: "Other"}}
	bloodOptions  = []widgets.Option{
		{Value: "A+", Label: "A+"}, {Value: "A-", Label: "A-"}, {Value: "B+", Label: "B+"}, {Value: "B-", Label: "B-"},
		{Value: "AB+", Label: "AB+"}, {Value: "AB-", Label: "AB-"}, {Value: "O+", Label: "O+"}, {Value: "O-", Label: "O-"},
	}
	recordTypeOptions = []widgets.Option{
		{Value: "vitals", Label: "Vitals"}, {Value: "diagnosis", Label: "Diagnosis"},
		{Value: "lab_result", Label: "Lab Result"}, {Value: "note", Label: "Clinical Note"},
	}
)

type patientFormView struct {
	Form       services.PatientForm
	Gender     widgets.Select
	BloodGroup widgets.Select
	// MRN is shown on edit only. It is assigned by the backend.
	MRN string
}

func newPatientFormView(f services.PatientForm, mrn string) patientFormView {
	return patientFormView{
		Form:       f,
		Gender:     widgets.NewSelect("gender", genderOptions, f.Gender),
		BloodGroup: widgets.NewSelect("blood_group", bloodOptions, f.BloodGroup),
		MRN:        mrn,
	}
}

type patientsView struct {
	Page   services.PatientPage
	Create widgets.Dialog
	Edit   widgets.Dialog
	Form   patientFormView
	// Editing is set when the edit dialog's target is on this page.
	Editing  bool
	PrevHref string
	NextHref string
}

func (h *PatientHandler) service(r *http.Request) *services.PatientService {
	return services.NewPatientService(h.client(r), h.audit, h.actor(r))
}

func pageHref(q string, page int) string {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return "/patients"
	}
	return "/patients?" + v.Encode()
}

func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))

	result, err := h.service(r).Search(r.Context(), q.Get("q"), page)
	if err != nil && h.readFailed(w, r, err, "patients") {
		return
	}
	view := patientsView{
		Page:     result,
		Create:   widgets.NewDialog(q, "create"),
		Edit:     widgets.NewDialog(q, "edit"),
		PrevHref: pageHref(result.Query, result.Page-1),
		NextHref: pageHref(result.Query, result.Page+1),
		Form:     newPatientFormView(services.PatientForm{}, ""),
	}
	if i := slices.IndexFunc(result.Patients, func(p models.Patient) bool { return p.ID == view.Edit.Target }); i >= 0 {
		p := result.Patients[i]
		view.Form = newPatientFormView(services.FormFromPatient(p), p.MRN)
		view.Editing = true
	}
	h.render(w, r, "patients", view, nil)
}

func patientForm(r *http.Request) services.PatientForm {
	return services.PatientForm{
		Name:       r.PostFormValue("name"),
		Mobile:     r.PostFormValue("mobile"),
		DOB:        r.PostFormValue("dob"),
		Gender:     r.PostFormValue("gender"),
		BloodGroup: r.PostFormValue("blood_group"),
		Allergies:  r.PostFormValue("allergies"),
		Address:    r.PostFormValue("address"),
	}
}

func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := h.service(r).Save(r.Context(), "", patientForm(r)); err != nil {
		h.fail(w, r, err, "Failed to register patient", "/patients?dialog=create")
		return
	}
	h.done(w, r, "Patient registered", "/patients")
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := localPath(r.PostFormValue("back"), "/patients/"+id)
	if err := h.service(r).Save(r.Context(), id, patientForm(r)); err != nil {
		h.fail(w, r, err, "Failed to update patient", back)
		return
	}
	h.done(w, r, "Patient updated", back)
}

type profileView struct {
	*services.ProfileView
	Tabs        widgets.Tabs
	AddRecord   widgets.Dialog
	Edit        widgets.Dialog
	Form        patientFormView
	RecordTypes widgets.Select
}

func (h *PatientHandler) load(w http.ResponseWriter, r *http.Request) (*services.ProfileView, bool) {
	v, err := h.service(r).Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !h.readFailed(w, r, err, "patient profile") {
			h.flash(r, session.FlashError, userMessage(err, "Failed to load patient"))
			h.redirect(w, r, "/patients")
		}
		return nil, false
	}
	return v, true
}

func (h *PatientHandler) Profile(w http.ResponseWriter, r *http.Request) {
	v, ok := h.load(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	tabs := []widgets.Tab{{Key: "overview", Label: "Overview"}}
	if v.CanViewTimeline {
		tabs = append(tabs, widgets.Tab{Key: "timeline", Label: "Timeline"})
	}
	tabs = append(tabs, widgets.Tab{Key: "attachments", Label: "Attachments"})

	h.render(w, r, "patient", profileView{
		ProfileView: v,
		Tabs:        widgets.NewTabs(q, "tab", tabs...),
		AddRecord:   widgets.NewDialog(q, "record"),
		Edit:        widgets.NewDialog(q, "edit"),
		Form:        newPatientFormView(services.FormFromPatient(v.Profile.Patient), v.Profile.MRN),
		RecordTypes: widgets.NewSelect("type", recordTypeOptions, "vitals"),
	}, nil)
}

// Summary is the printable patient sheet.
func (h *PatientHandler) Summary(w http.ResponseWriter, r *http.Request) {
	v, ok := h.load(w, r)
	if !ok {
		return
	}
	h.views.Render(w, http.StatusOK, layoutBare, "patient_summary", &Page{
		Title:   v.Profile.Name,
		Profile: h.actor(r),
		Path:    r.URL.Path,
		Data:    v,
	})
}

func (h *PatientHandler) AddRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/patients/" + id + "?tab=timeline"
	if err := h.service(r).AddRecord(r.Context(), id, r.PostFormValue("type"), r.PostFormValue("details")); err != nil {
		h.fail(w, r, err, "Failed to add record", "/patients/"+id+"?dialog=record")
		return
	}
	h.done(w, r, "Record added", back)
}

func (h *PatientHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/patients/" + id + "?tab=attachments"
	name := r.PostFormValue("file_name")
	if name == "" {
		if f, fh, err := r.FormFile("file"); err == nil {
			defer f.Close()
			name = fh.Filename
		}
	}
	if err := h.service(r).AddAttachment(r.Context(), id, name, r.PostFormValue("file_type")); err != nil {
		h.fail(w, r, err, "Failed to upload attachment", back)
		return
	}
	h.done(w, r, "Attachment added", back)
}
