package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-bridge/internal/auth"
	"github.com/spec-kit/incident-bridge/internal/config"
	"github.com/spec-kit/incident-bridge/internal/domain"
	"github.com/spec-kit/incident-bridge/internal/events"
	"github.com/spec-kit/incident-bridge/internal/guard"
	"github.com/spec-kit/incident-bridge/internal/mapping"
	"github.com/spec-kit/incident-bridge/internal/remote"
	apperrors "github.com/spec-kit/incident-bridge/pkg/util"
)

const (
	resolutionNoteMarker  = "Resolution Note:"
	defaultResolutionNote = "Resolved in PagerDuty. No resolution note was provided."
)

// Outcome classifies how one inbound event was handled.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeResolved Outcome = "resolved"
	OutcomePatched  Outcome = "patched"
	OutcomeNoop     Outcome = "noop"
	OutcomeSkipped  Outcome = "skipped"
)

// TicketEventInput is the normalized inbound ticketing webhook.
type TicketEventInput struct {
	Type   string
	Action string
	Ticket domain.Ticket
}

// TicketSyncResult echoes the resolved ticket state and the decision taken.
type TicketSyncResult struct {
	TicketID   int     `json:"ticket_id"`
	Status     string  `json:"status"`
	Outcome    Outcome `json:"outcome"`
	IncidentID string  `json:"incident_id,omitempty"`
}

// IncidentSyncResult is the decision taken for one alerting webhook.
type IncidentSyncResult struct {
	EventType string  `json:"event_type"`
	TicketID  int     `json:"ticket_id,omitempty"`
	Outcome   Outcome `json:"outcome"`
}

// SyncDependencies bundles collaborators for the sync service.
type SyncDependencies struct {
	Tickets    remote.TicketClient
	Incidents  remote.IncidentClient
	Secrets    *auth.SecretResolver
	Lock       guard.KeyLock
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// SyncService keeps ticket and incident lifecycle state aligned across the
// two platforms. All durable state lives remotely; the service re-queries
// rather than caching, so the creation lock is its only shared state.
type SyncService struct {
	tickets    remote.TicketClient
	incidents  remote.IncidentClient
	secrets    *auth.SecretResolver
	lock       guard.KeyLock
	dispatcher events.Dispatcher
	logger     *zap.Logger
	policy     config.SyncConfig
	routes     map[string]string
	// priorityIDs: bridge code -> alerting priority reference ID.
	// priorityCodes: the inverse, for inbound incident events.
	priorityIDs   map[string]string
	priorityCodes map[string]string
}

// NewSyncService constructs the service.
func NewSyncService(cfg *config.Config, deps SyncDependencies) *SyncService {
	return &SyncService{
		tickets:       deps.Tickets,
		incidents:     deps.Incidents,
		secrets:       deps.Secrets,
		lock:          deps.Lock,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		policy:        cfg.Sync,
		routes:        cfg.PagerDuty.BoardRoutes(),
		priorityIDs:   cfg.PagerDuty.PriorityIDs,
		priorityCodes: cfg.PagerDuty.PriorityCodes(),
	}
}

// HandleTicketEvent processes one inbound ticketing webhook.
func (s *SyncService) HandleTicketEvent(ctx context.Context, input TicketEventInput) (*TicketSyncResult, error) {
	if input.Type != "ticket" {
		return nil, apperrors.NewValidationError("unsupported event type", map[string]any{"type": input.Type})
	}
	ticket := input.Ticket
	if ticket.ID == 0 {
		return nil, apperrors.NewValidationError("ticket id missing", nil)
	}
	if _, ok := s.routes[ticket.Board]; !ok {
		return nil, apperrors.NewValidationError("board not mapped", map[string]any{"board": ticket.Board})
	}

	description, err := s.tickets.GetTicketDescription(ctx, ticket.ID)
	if err != nil {
		s.logger.Warn("description fetch failed, continuing without it",
			zap.Int("ticket_id", ticket.ID), zap.Error(err))
	} else {
		ticket.Description = description
	}

	key := ticket.CorrelationKey()
	action := mapping.StatusAction(ticket.Status)

	incident, err := s.incidents.GetIncidentByKey(ctx, key)
	if err != nil {
		return nil, apperrors.NewRemoteError("alerting", err)
	}

	result := &TicketSyncResult{TicketID: ticket.ID, Status: ticket.Status}

	if incident == nil || incident.Status == domain.IncidentResolved {
		if action != mapping.ActionTrigger {
			reason := "status unmapped"
			if action == mapping.ActionResolve {
				reason = "no active incident to resolve"
			}
			s.logger.Info("ticket event dropped",
				zap.Int("ticket_id", ticket.ID), zap.String("status", ticket.Status), zap.String("reason", reason))
			s.publish(ctx, events.EventSyncSkipped, key, events.SyncSkippedPayload{Reason: reason, TicketID: ticket.ID})
			result.Outcome = OutcomeNoop
			return result, nil
		}
		if incident == nil {
			// The remote listing can lag a just-created incident; re-check
			// once after a short delay before concluding it is absent.
			time.Sleep(s.policy.RecheckDelay)
			incident, err = s.incidents.GetIncidentByKey(ctx, key)
			if err != nil {
				return nil, apperrors.NewRemoteError("alerting", err)
			}
			if incident != nil && incident.Status != domain.IncidentResolved {
				result.Outcome = OutcomeNoop
				result.IncidentID = incident.ID
				return result, nil
			}
		}
		created, err := s.createIncident(ctx, ticket)
		if err != nil {
			return nil, apperrors.NewRemoteError("alerting", err)
		}
		if created == nil {
			result.Outcome = OutcomeSkipped
			return result, nil
		}
		result.Outcome = OutcomeCreated
		result.IncidentID = created.ID
		return result, nil
	}

	switch action {
	case mapping.ActionTrigger:
		// already active remotely
		result.Outcome = OutcomeNoop
		result.IncidentID = incident.ID
		return result, nil
	case mapping.ActionResolve:
		updated, err := s.incidents.UpdateIncidentStatus(ctx, incident.ID, domain.IncidentResolved)
		if err != nil {
			return nil, apperrors.NewRemoteError("alerting", err)
		}
		s.publish(ctx, events.EventIncidentResolved, key, events.IncidentResolvedPayload{
			IncidentID: updated.ID,
			TicketID:   ticket.ID,
		})
		result.Outcome = OutcomeResolved
		result.IncidentID = updated.ID
		return result, nil
	default:
		s.logger.Info("ticket status unmapped",
			zap.Int("ticket_id", ticket.ID), zap.String("status", ticket.Status))
		s.publish(ctx, events.EventSyncSkipped, key, events.SyncSkippedPayload{Reason: "status unmapped", TicketID: ticket.ID})
		result.Outcome = OutcomeNoop
		result.IncidentID = incident.ID
		return result, nil
	}
}

// createIncident opens a new incident for the ticket, guarded against
// concurrent duplicate creation. A nil incident with nil error means the
// ticket was skipped by policy.
func (s *SyncService) createIncident(ctx context.Context, ticket domain.Ticket) (*domain.Incident, error) {
	key := ticket.CorrelationKey()

	acquired, _ := s.lock.TryAcquire(ctx, key)
	if !acquired {
		// A concurrent creation holds the key. Single bounded wait, then
		// proceed; the re-check below picks up whatever the holder did.
		time.Sleep(s.policy.GuardWaitDelay)
		acquired, _ = s.lock.TryAcquire(ctx, key)
	}
	if acquired {
		defer s.lock.Release(ctx, key)
	}

	existing, err := s.incidents.GetIncidentByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != domain.IncidentResolved {
		return existing, nil
	}

	serviceID, ok := s.routes[ticket.Board]
	if !ok {
		return nil, fmt.Errorf("no service mapped for board %q", ticket.Board)
	}

	if s.policy.KeywordGateEnabled && !mapping.KeywordAdmits(ticket.Board, ticket.Summary) {
		s.logger.Info("ticket failed keyword gate",
			zap.Int("ticket_id", ticket.ID), zap.String("board", ticket.Board))
		s.publish(ctx, events.EventSyncSkipped, key, events.SyncSkippedPayload{Reason: "keyword gate", TicketID: ticket.ID})
		return nil, nil
	}

	bucket := mapping.MapPriority(ticket.Priority)
	if s.policy.PriorityAdmission == config.AdmitUrgentOnly && !mapping.UrgentCodes[bucket.Code] {
		s.logger.Info("ticket priority below admission threshold",
			zap.Int("ticket_id", ticket.ID), zap.String("priority", ticket.Priority))
		s.publish(ctx, events.EventSyncSkipped, key, events.SyncSkippedPayload{Reason: "priority below threshold", TicketID: ticket.ID})
		return nil, nil
	}

	title := fmt.Sprintf("%s | #%d | %s", bucket.Code, ticket.ID, ticket.Summary)
	created, err := s.incidents.CreateIncident(ctx, remote.CreateIncidentInput{
		Title:       title,
		ServiceID:   serviceID,
		Urgency:     bucket.Urgency,
		PriorityID:  s.priorityIDs[bucket.Code],
		IncidentKey: key,
	})
	if err != nil {
		return nil, err
	}

	if ticket.Description != "" {
		if err := s.incidents.AddIncidentNote(ctx, created.ID, ticket.Description); err != nil {
			s.logger.Warn("description note failed",
				zap.String("incident_id", created.ID), zap.Error(err))
		}
	}

	s.publish(ctx, events.EventIncidentCreated, key, events.IncidentCreatedPayload{
		IncidentID:   created.ID,
		TicketID:     ticket.ID,
		PriorityCode: bucket.Code,
		Urgency:      bucket.Urgency,
	})
	return created, nil
}

type incidentEnvelope struct {
	Event *struct {
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	} `json:"event"`
}

type incidentData struct {
	ID       string `mapstructure:"id"`
	Title    string `mapstructure:"title"`
	Status   string `mapstructure:"status"`
	Priority struct {
		ID string `mapstructure:"id"`
	} `mapstructure:"priority"`
	Service struct {
		ID      string `mapstructure:"id"`
		Summary string `mapstructure:"summary"`
	} `mapstructure:"service"`
}

type annotationData struct {
	Content  string `mapstructure:"content"`
	Summary  string `mapstructure:"summary"`
	Incident struct {
		Title string `mapstructure:"title"`
	} `mapstructure:"incident"`
}

// HandleIncidentEvent processes one inbound alerting webhook. rawBody must
// be the untouched request bytes: the signature is computed over them.
func (s *SyncService) HandleIncidentEvent(ctx context.Context, rawBody []byte, signatureHeader string) (*IncidentSyncResult, error) {
	var envelope incidentEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil || envelope.Event == nil || envelope.Event.Data == nil {
		return nil, apperrors.NewValidationError("malformed webhook payload", nil)
	}
	eventType := envelope.Event.EventType

	if eventType == mapping.EventIncidentAnnotated {
		return s.handleAnnotation(ctx, envelope.Event.Data)
	}

	var data incidentData
	if err := mapstructure.Decode(envelope.Event.Data, &data); err != nil {
		return nil, apperrors.NewValidationError("malformed event data", nil)
	}

	result := &IncidentSyncResult{EventType: eventType}

	if data.Service.ID == "" && data.Service.Summary == "" {
		// system event without service identity, not an incident
		s.logger.Info("event without service identity skipped", zap.String("event_type", eventType))
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	secret, ok := s.secrets.Resolve(data.Service.ID, data.Service.Summary)
	if !ok {
		return nil, apperrors.NewValidationError("unknown service", map[string]any{
			"service_id": data.Service.ID,
		})
	}

	if !auth.VerifySignature(rawBody, signatureHeader, secret) {
		s.publish(ctx, events.EventSyncRejected, data.ID, events.SyncRejectedPayload{Reason: "invalid signature"})
		return nil, apperrors.NewUnauthorized("invalid webhook signature")
	}

	ticketID, ok := domain.TicketRefFromTitle(data.Title)
	if !ok {
		s.logger.Info("no ticket reference in incident title",
			zap.String("incident_id", data.ID), zap.String("title", data.Title))
		result.Outcome = OutcomeSkipped
		return result, nil
	}
	result.TicketID = ticketID

	patch := mapping.MapIncidentEvent(eventType, s.priorityCodes[data.Priority.ID])
	if patch.Status == "" && patch.Priority == nil && !patch.WantsNote {
		s.logger.Info("unhandled event type", zap.String("event_type", eventType))
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	var ops []remote.PatchOp
	if patch.Status != "" {
		ops = append(ops, remote.ReplaceOp("status/name", patch.Status))
	}
	if patch.Priority != nil {
		ops = append(ops, remote.ReplaceOp("priority/id", patch.Priority.ID))
	}
	if len(ops) > 0 {
		if err := s.tickets.UpdateTicket(ctx, ticketID, ops); err != nil {
			return nil, apperrors.NewRemoteError("ticketing", err)
		}
	}

	payload := events.TicketPatchedPayload{TicketID: ticketID, Status: patch.Status}
	if patch.Priority != nil {
		payload.PriorityID = patch.Priority.ID
	}

	if patch.WantsNote {
		// one resolution note per resolved incident
		note := s.resolveResolutionNote(ctx, data.ID)
		if err := s.tickets.AddTicketNote(ctx, ticketID, note, patch.NoteKind); err != nil {
			return nil, apperrors.NewRemoteError("ticketing", err)
		}
		payload.NoteKind = patch.NoteKind.String()
	}

	s.publish(ctx, events.EventTicketPatched, data.ID, payload)
	result.Outcome = OutcomePatched
	return result, nil
}

// handleAnnotation appends annotation text to the referenced ticket. Runs
// before service-identity resolution and carries no signature material.
func (s *SyncService) handleAnnotation(ctx context.Context, raw map[string]any) (*IncidentSyncResult, error) {
	var data annotationData
	if err := mapstructure.Decode(raw, &data); err != nil {
		return nil, apperrors.NewValidationError("malformed annotation data", nil)
	}

	result := &IncidentSyncResult{EventType: mapping.EventIncidentAnnotated}

	ticketID, ok := domain.TicketRefFromTitle(data.Incident.Title)
	if !ok {
		s.logger.Info("annotation without ticket reference", zap.String("title", data.Incident.Title))
		result.Outcome = OutcomeSkipped
		return result, nil
	}
	result.TicketID = ticketID

	text := data.Content
	if text == "" {
		text = data.Summary
	}
	if text == "" {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	if err := s.tickets.AddTicketNote(ctx, ticketID, text, domain.NoteDetail); err != nil {
		return nil, apperrors.NewRemoteError("ticketing", err)
	}

	s.publish(ctx, events.EventTicketPatched, "", events.TicketPatchedPayload{
		TicketID: ticketID,
		NoteKind: domain.NoteDetail.String(),
	})
	result.Outcome = OutcomePatched
	return result, nil
}

// resolveResolutionNote picks the note text to write back for a resolved
// incident: the latest note carrying the resolution marker, else the
// chronologically last note, else a fixed default. Never fails; note
// retrieval is best-effort.
func (s *SyncService) resolveResolutionNote(ctx context.Context, incidentID string) string {
	notes, err := s.incidents.FetchIncidentNotes(ctx, incidentID)
	if err != nil {
		s.logger.Warn("notes fetch failed, using default resolution note",
			zap.String("incident_id", incidentID), zap.Error(err))
		return defaultResolutionNote
	}
	if len(notes) == 0 {
		return defaultResolutionNote
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
	for i := len(notes) - 1; i >= 0; i-- {
		if strings.HasPrefix(notes[i].Content, resolutionNoteMarker) {
			return strings.TrimSpace(strings.TrimPrefix(notes[i].Content, resolutionNoteMarker))
		}
	}
	if last := notes[len(notes)-1].Content; last != "" {
		return last
	}
	return defaultResolutionNote
}

func (s *SyncService) publish(ctx context.Context, eventType events.EventType, key string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		CorrelationKey: key,
		Timestamp:      time.Now().UTC(),
		Payload:        payload,
	})
}
