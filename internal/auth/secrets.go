package auth

import "github.com/spec-kit/incident-bridge/internal/config"

// SecretResolver looks up the webhook signing secret for a source service.
type SecretResolver struct {
	services []config.PagerDutyService
}

// NewSecretResolver constructs a resolver over the configured services.
func NewSecretResolver(services []config.PagerDutyService) *SecretResolver {
	return &SecretResolver{services: services}
}

// Resolve returns the signing secret for the service identified by ID or,
// failing that, by display name. The second return is false for unknown
// services; the caller rejects those before any signature check.
func (r *SecretResolver) Resolve(serviceID, serviceName string) (string, bool) {
	for _, svc := range r.services {
		if serviceID != "" && svc.ID == serviceID {
			return svc.WebhookSecret, true
		}
	}
	for _, svc := range r.services {
		if serviceName != "" && svc.Name == serviceName {
			return svc.WebhookSecret, true
		}
	}
	return "", false
}
