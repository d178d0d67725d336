package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-bridge/internal/config"
	"github.com/spec-kit/incident-bridge/internal/domain"
)

// CreateIncidentInput carries everything needed to open an incident.
type CreateIncidentInput struct {
	Title       string
	ServiceID   string
	Urgency     string
	PriorityID  string
	IncidentKey string
	Body        string
}

// IncidentClient is the bridge's view of the alerting platform.
type IncidentClient interface {
	CreateIncident(ctx context.Context, input CreateIncidentInput) (*domain.Incident, error)
	UpdateIncidentStatus(ctx context.Context, incidentID string, status domain.IncidentStatus) (*domain.Incident, error)
	// GetIncidentByKey looks an incident up by its external correlation
	// key. Returns nil without error when no incident matches.
	GetIncidentByKey(ctx context.Context, key string) (*domain.Incident, error)
	FetchIncidentNotes(ctx context.Context, incidentID string) ([]domain.IncidentNote, error)
	AddIncidentNote(ctx context.Context, incidentID, content string) error
}

type pagerDutyClient struct {
	http      *http.Client
	baseURL   string
	authToken string
	fromEmail string
	logger    *zap.Logger
}

// NewPagerDutyClient constructs the HTTP alerting client.
func NewPagerDutyClient(cfg config.PagerDutyConfig, logger *zap.Logger) IncidentClient {
	return &pagerDutyClient{
		http:      &http.Client{Timeout: cfg.Timeout()},
		baseURL:   cfg.APIURL,
		authToken: cfg.AuthToken,
		fromEmail: cfg.FromEmail,
		logger:    logger,
	}
}

func (c *pagerDutyClient) headers(withFrom bool) map[string]string {
	h := map[string]string{
		"Authorization": "Token token=" + c.authToken,
	}
	if withFrom {
		h["From"] = c.fromEmail
	}
	return h
}

type pdReference struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
}

type pdIncident struct {
	ID          string       `json:"id,omitempty"`
	Type        string       `json:"type"`
	Title       string       `json:"title,omitempty"`
	Status      string       `json:"status,omitempty"`
	Urgency     string       `json:"urgency,omitempty"`
	IncidentKey string       `json:"incident_key,omitempty"`
	Service     *pdReference `json:"service,omitempty"`
	Priority    *pdReference `json:"priority,omitempty"`
	Body        *pdBody      `json:"body,omitempty"`
}

type pdBody struct {
	Type    string `json:"type"`
	Details string `json:"details"`
}

type pdIncidentEnvelope struct {
	Incident pdIncident `json:"incident"`
}

type pdIncidentList struct {
	Incidents []pdIncident `json:"incidents"`
}

func toDomainIncident(in pdIncident) *domain.Incident {
	incident := &domain.Incident{
		ID:          in.ID,
		Status:      domain.IncidentStatus(in.Status),
		Urgency:     in.Urgency,
		Title:       in.Title,
		IncidentKey: in.IncidentKey,
	}
	if in.Service != nil {
		incident.ServiceID = in.Service.ID
	}
	if in.Priority != nil {
		incident.PriorityID = in.Priority.ID
	}
	return incident
}

func (c *pagerDutyClient) CreateIncident(ctx context.Context, input CreateIncidentInput) (*domain.Incident, error) {
	payload := pdIncidentEnvelope{Incident: pdIncident{
		Type:        "incident",
		Title:       input.Title,
		Urgency:     input.Urgency,
		IncidentKey: input.IncidentKey,
		Service:     &pdReference{ID: input.ServiceID, Type: "service_reference"},
	}}
	if input.PriorityID != "" {
		payload.Incident.Priority = &pdReference{ID: input.PriorityID, Type: "priority_reference"}
	}
	if input.Body != "" {
		payload.Incident.Body = &pdBody{Type: "incident_body", Details: input.Body}
	}

	var out pdIncidentEnvelope
	url := c.baseURL + "/incidents"
	if err := doJSON(ctx, c.http, http.MethodPost, url, c.headers(true), payload, &out); err != nil {
		c.logger.Error("incident create failed", zap.String("incident_key", input.IncidentKey), zap.Error(err))
		return nil, err
	}
	return toDomainIncident(out.Incident), nil
}

func (c *pagerDutyClient) UpdateIncidentStatus(ctx context.Context, incidentID string, status domain.IncidentStatus) (*domain.Incident, error) {
	payload := pdIncidentEnvelope{Incident: pdIncident{
		Type:   "incident_reference",
		Status: string(status),
	}}
	var out pdIncidentEnvelope
	url := fmt.Sprintf("%s/incidents/%s", c.baseURL, incidentID)
	if err := doJSON(ctx, c.http, http.MethodPut, url, c.headers(true), payload, &out); err != nil {
		c.logger.Error("incident update failed", zap.String("incident_id", incidentID), zap.Error(err))
		return nil, err
	}
	return toDomainIncident(out.Incident), nil
}

func (c *pagerDutyClient) GetIncidentByKey(ctx context.Context, key string) (*domain.Incident, error) {
	query := url.Values{}
	query.Set("incident_key", key)
	var out pdIncidentList
	listURL := c.baseURL + "/incidents?" + query.Encode()
	if err := doJSON(ctx, c.http, http.MethodGet, listURL, c.headers(false), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Incidents) == 0 {
		return nil, nil
	}
	// The platform enforces key uniqueness among non-resolved incidents;
	// the most recent entry is last in the listing.
	return toDomainIncident(out.Incidents[len(out.Incidents)-1]), nil
}

type pdNote struct {
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type pdNoteList struct {
	Notes []pdNote `json:"notes"`
}

func (c *pagerDutyClient) FetchIncidentNotes(ctx context.Context, incidentID string) ([]domain.IncidentNote, error) {
	var out pdNoteList
	url := fmt.Sprintf("%s/incidents/%s/notes", c.baseURL, incidentID)
	if err := doJSON(ctx, c.http, http.MethodGet, url, c.headers(false), nil, &out); err != nil {
		return nil, err
	}
	notes := make([]domain.IncidentNote, 0, len(out.Notes))
	for _, note := range out.Notes {
		entry := domain.IncidentNote{Content: note.Content}
		if ts, err := parseNoteTime(note.CreatedAt); err == nil {
			entry.CreatedAt = ts
		}
		notes = append(notes, entry)
	}
	return notes, nil
}

func parseNoteTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

func (c *pagerDutyClient) AddIncidentNote(ctx context.Context, incidentID, content string) error {
	payload := map[string]any{"note": map[string]string{"content": content}}
	url := fmt.Sprintf("%s/incidents/%s/notes", c.baseURL, incidentID)
	if err := doJSON(ctx, c.http, http.MethodPost, url, c.headers(true), payload, nil); err != nil {
		c.logger.Error("incident note failed", zap.String("incident_id", incidentID), zap.Error(err))
		return err
	}
	return nil
}
