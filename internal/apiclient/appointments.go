package apiclient

import (
	"context"
	"net/http"

	"github.com/otcheredev/clinic-console/internal/models"
)

func (c *Client) ListAppointments(ctx context.Context, q models.AppointmentQuery) ([]models.Appointment, error) {
	params := map[string]string{}
	if q.StartDate != "" {
		params["start_date"] = q.StartDate
	}
	if q.EndDate != "" {
		params["end_date"] = q.EndDate
	}
	var out []models.Appointment
	if err := c.call(c.request(ctx).SetQueryParams(params), http.MethodGet, "/appointments", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAppointment(ctx context.Context, in models.AppointmentInput) (*models.Appointment, error) {
	var out models.Appointment
	if err := c.call(c.request(ctx).SetBody(in), http.MethodPost, "/appointments", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	body := models.StatusUpdate{Status: status}
	return c.call(c.request(ctx).SetBody(body), http.MethodPatch, pathf("/appointments/%s", id), nil)
}

func (c *Client) CreatePrescription(ctx context.Context, appointmentID string, in models.PrescriptionInput) (*models.Prescription, error) {
	var out models.Prescription
	path := pathf("/appointments/%s/prescriptions", appointmentID)
	if err := c.call(c.request(ctx).SetBody(in), http.MethodPost, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PrescriptionPDF fetches the rendered prescription document.
func (c *Client) PrescriptionPDF(ctx context.Context, id string) ([]byte, string, error) {
	req := c.request(ctx).SetHeader("Accept", "application/pdf")
	resp, err := c.send(req, http.MethodGet, pathf("/prescriptions/%s/pdf", id))
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return resp.Body(), contentType, nil
}
