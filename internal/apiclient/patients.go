package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/otcheredev/clinic-console/internal/models"
)

func (c *Client) ListPatients(ctx context.Context, q models.PatientQuery) ([]models.Patient, error) {
	params := map[string]string{}
	if q.Q != "" {
		params["q"] = q.Q
	}
	if q.Skip > 0 {
		params["skip"] = strconv.Itoa(q.Skip)
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	var out []models.Patient
	if err := c.call(c.request(ctx).SetQueryParams(params), http.MethodGet, "/patients", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePatient(ctx context.Context, in models.PatientInput) (*models.Patient, error) {
	var out models.Patient
	if err := c.call(c.request(ctx).SetBody(in), http.MethodPost, "/patients", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePatient(ctx context.Context, id string, in models.PatientInput) error {
	return c.call(c.request(ctx).SetBody(in), http.MethodPatch, pathf("/patients/%s", id), nil)
}

func (c *Client) PatientProfile(ctx context.Context, id string) (*models.PatientProfile, error) {
	var out models.PatientProfile
	if err := c.call(c.request(ctx), http.MethodGet, pathf("/patients/%s/profile", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddRecord(ctx context.Context, patientID string, in models.RecordInput) (*models.ClinicalRecord, error) {
	var out models.ClinicalRecord
	if err := c.call(c.request(ctx).SetBody(in), http.MethodPost, pathf("/patients/%s/records", patientID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddAttachment registers attachment metadata; the backend takes it as query parameters.
func (c *Client) AddAttachment(ctx context.Context, patientID, fileName, fileType string) (*models.Attachment, error) {
	req := c.request(ctx).SetQueryParams(map[string]string{
		"file_name": fileName,
		"file_type": fileType,
	})
	var out models.Attachment
	if err := c.call(req, http.MethodPost, pathf("/patients/%s/attachments", patientID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
