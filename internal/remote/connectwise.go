package remote

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-bridge/internal/config"
	"github.com/spec-kit/incident-bridge/internal/domain"
)

// PatchOp is one JSON-patch style operation on a ticket.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// ReplaceOp builds a replace patch operation.
func ReplaceOp(path string, value any) PatchOp {
	return PatchOp{Op: "replace", Path: path, Value: value}
}

// TicketClient is the bridge's view of the ticketing platform.
type TicketClient interface {
	// GetTicketDescription fetches the ticket's initial description text.
	// Best-effort enrichment: callers degrade to "" on error.
	GetTicketDescription(ctx context.Context, ticketID int) (string, error)
	UpdateTicket(ctx context.Context, ticketID int, ops []PatchOp) error
	AddTicketNote(ctx context.Context, ticketID int, text string, kind domain.NoteKind) error
}

type connectWiseClient struct {
	http      *http.Client
	baseURL   string
	clientID  string
	basicAuth string
	logger    *zap.Logger
}

// NewConnectWiseClient constructs the HTTP ticketing client.
func NewConnectWiseClient(cfg config.ConnectWiseConfig, logger *zap.Logger) TicketClient {
	credentials := fmt.Sprintf("%s+%s:%s", cfg.CompanyID, cfg.PublicKey, cfg.PrivateKey)
	return &connectWiseClient{
		http:      &http.Client{Timeout: cfg.Timeout()},
		baseURL:   cfg.SiteURL + "/v4_6_release/apis/3.0",
		clientID:  cfg.ClientID,
		basicAuth: "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials)),
		logger:    logger,
	}
}

func (c *connectWiseClient) headers() map[string]string {
	return map[string]string{
		"Authorization": c.basicAuth,
		"clientId":      c.clientID,
	}
}

type cwNote struct {
	Text                  string `json:"text"`
	DetailDescriptionFlag bool   `json:"detailDescriptionFlag"`
	ResolutionFlag        bool   `json:"resolutionFlag"`
	InternalAnalysisFlag  bool   `json:"internalAnalysisFlag"`
}

func (c *connectWiseClient) GetTicketDescription(ctx context.Context, ticketID int) (string, error) {
	url := fmt.Sprintf("%s/service/tickets/%d/notes", c.baseURL, ticketID)
	var notes []cwNote
	if err := doJSON(ctx, c.http, http.MethodGet, url, c.headers(), nil, &notes); err != nil {
		return "", err
	}
	for _, note := range notes {
		if note.DetailDescriptionFlag {
			return note.Text, nil
		}
	}
	return "", nil
}

func (c *connectWiseClient) UpdateTicket(ctx context.Context, ticketID int, ops []PatchOp) error {
	url := fmt.Sprintf("%s/service/tickets/%d", c.baseURL, ticketID)
	if err := doJSON(ctx, c.http, http.MethodPatch, url, c.headers(), ops, nil); err != nil {
		c.logger.Error("ticket patch failed", zap.Int("ticket_id", ticketID), zap.Error(err))
		return err
	}
	return nil
}

func (c *connectWiseClient) AddTicketNote(ctx context.Context, ticketID int, text string, kind domain.NoteKind) error {
	url := fmt.Sprintf("%s/service/tickets/%d/notes", c.baseURL, ticketID)
	note := cwNote{
		Text:                  text,
		DetailDescriptionFlag: kind == domain.NoteDetail,
		ResolutionFlag:        kind == domain.NoteResolution,
		InternalAnalysisFlag:  kind == domain.NoteInternal,
	}
	if err := doJSON(ctx, c.http, http.MethodPost, url, c.headers(), note, nil); err != nil {
		c.logger.Error("ticket note failed", zap.Int("ticket_id", ticketID), zap.Error(err))
		return err
	}
	return nil
}
