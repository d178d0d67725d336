package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-bridge/internal/auth"
	"github.com/spec-kit/incident-bridge/internal/config"
	"github.com/spec-kit/incident-bridge/internal/domain"
	"github.com/spec-kit/incident-bridge/internal/guard"
	"github.com/spec-kit/incident-bridge/internal/remote"
	"github.com/spec-kit/incident-bridge/internal/service"
	apperrors "github.com/spec-kit/incident-bridge/pkg/util"
)

type stubTicketClient struct {
	mu    sync.Mutex
	notes []string
}

func (s *stubTicketClient) GetTicketDescription(context.Context, int) (string, error) {
	return "", nil
}

func (s *stubTicketClient) UpdateTicket(context.Context, int, []remote.PatchOp) error {
	return nil
}

func (s *stubTicketClient) AddTicketNote(_ context.Context, _ int, text string, _ domain.NoteKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, text)
	return nil
}

type stubIncidentClient struct {
	mu      sync.Mutex
	created []remote.CreateIncidentInput
}

func (s *stubIncidentClient) CreateIncident(_ context.Context, input remote.CreateIncidentInput) (*domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, input)
	return &domain.Incident{ID: "PD1", Status: domain.IncidentTriggered, IncidentKey: input.IncidentKey}, nil
}

func (s *stubIncidentClient) UpdateIncidentStatus(_ context.Context, incidentID string, status domain.IncidentStatus) (*domain.Incident, error) {
	return &domain.Incident{ID: incidentID, Status: status}, nil
}

func (s *stubIncidentClient) GetIncidentByKey(context.Context, string) (*domain.Incident, error) {
	return nil, nil
}

func (s *stubIncidentClient) FetchIncidentNotes(context.Context, string) ([]domain.IncidentNote, error) {
	return nil, nil
}

func (s *stubIncidentClient) AddIncidentNote(context.Context, string, string) error {
	return nil
}

func errorMiddleware(c *fiber.Ctx) error {
	err := c.Next()
	if err == nil {
		return nil
	}
	domainErr := apperrors.ToDomainError(err)
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": domainErr.Code}})
}

func newTestApp(t *testing.T) (*fiber.App, *stubTicketClient, *stubIncidentClient) {
	t.Helper()
	cfg := &config.Config{
		PagerDuty: config.PagerDutyConfig{
			Services: []config.PagerDutyService{
				{ID: "SVC1", Name: "Technical Support Escalations", WebhookSecret: "secret-one", Board: "Technical Support"},
			},
			PriorityIDs: map[string]string{"P1": "PRI1"},
		},
		Sync: config.SyncConfig{
			KeywordGateEnabled: true,
			PriorityAdmission:  config.AdmitUrgentOnly,
			RecheckDelay:       time.Millisecond,
			GuardWaitDelay:     time.Millisecond,
		},
	}

	tickets := &stubTicketClient{}
	incidents := &stubIncidentClient{}
	syncService := service.NewSyncService(cfg, service.SyncDependencies{
		Tickets:   tickets,
		Incidents: incidents,
		Secrets:   auth.NewSecretResolver(cfg.PagerDuty.Services),
		Lock:      guard.NewMemoryKeyLock(),
		Logger:    zap.NewNop(),
	})

	app := fiber.New()
	app.Use(errorMiddleware)
	handler := NewWebhooksHandler(syncService)
	app.Post("/webhooks/connectwise", handler.ConnectWise)
	app.Post("/webhooks/pagerduty", handler.PagerDuty)
	return app, tickets, incidents
}

func TestConnectWiseWebhookAccepted(t *testing.T) {
	app, _, incidents := newTestApp(t)

	payload := map[string]any{
		"type":   "ticket",
		"action": "updated",
		"ticket": map[string]any{
			"id":       42,
			"board":    map[string]any{"name": "Technical Support"},
			"status":   map[string]any{"name": "New"},
			"priority": map[string]any{"name": "1a - Emergency"},
			"summary":  "Issue via Critical outage",
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/webhooks/connectwise", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	require.Len(t, incidents.created, 1)
	assert.Equal(t, "CW-42", incidents.created[0].IncidentKey)
	assert.Contains(t, incidents.created[0].Title, "P1 | #42")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(respBody), `"outcome":"created"`)
}

func TestConnectWiseWebhookRejectsUnmappedBoard(t *testing.T) {
	app, _, incidents := newTestApp(t)

	payload := map[string]any{
		"type":   "ticket",
		"ticket": map[string]any{"id": 9, "board": map[string]any{"name": "Sales"}},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/webhooks/connectwise", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Empty(t, incidents.created)
}

func TestPagerDutyWebhookEmptyBody(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/webhooks/pagerduty", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestPagerDutyWebhookAnnotation(t *testing.T) {
	app, tickets, _ := newTestApp(t)

	body, err := json.Marshal(map[string]any{
		"event": map[string]any{
			"event_type": "incident.annotated",
			"data": map[string]any{
				"content":  "looked at logs",
				"incident": map[string]any{"title": "P1 | #42 | Site down"},
			},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/webhooks/pagerduty", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	require.Len(t, tickets.notes, 1)
	assert.Equal(t, "looked at logs", tickets.notes[0])
}

func TestPagerDutyWebhookBadSignature(t *testing.T) {
	app, _, _ := newTestApp(t)

	body, err := json.Marshal(map[string]any{
		"event": map[string]any{
			"event_type": "incident.resolved",
			"data": map[string]any{
				"id":      "PDX",
				"title":   "#42",
				"service": map[string]any{"id": "SVC1"},
			},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/webhooks/pagerduty", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, "v1=deadbeef")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
