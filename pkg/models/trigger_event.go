package models

// TriggerEvent is an incoming occurrence evaluated against a user's playbooks.
// It is never persisted on its own; executions keep a snapshot of it.
type TriggerEvent struct {
	Type       TriggerType    `json:"type"                      validate:"required,oneof=shopify_event email_intent scheduled"`
	Event      string         `json:"event,omitempty"`
	Intent     string         `json:"intent,omitempty"`
	Schedule   string         `json:"schedule,omitempty"`
	Data       map[string]any `json:"data"`
	UserID     string         `json:"user_id"`
	ShopDomain string         `json:"shop_domain,omitempty"`

	// IdempotencyKey lets callers de-duplicate retried submissions when a guard is configured.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Snapshot returns the event as a plain document suitable for an execution record.
func (e TriggerEvent) Snapshot() map[string]any {
	snapshot := map[string]any{
		"type":    string(e.Type),
		"data":    e.Data,
		"user_id": e.UserID,
	}

	if e.Event != "" {
		snapshot["event"] = e.Event
	}

	if e.Intent != "" {
		snapshot["intent"] = e.Intent
	}

	if e.Schedule != "" {
		snapshot["schedule"] = e.Schedule
	}

	if e.ShopDomain != "" {
		snapshot["shop_domain"] = e.ShopDomain
	}

	return snapshot
}

// Matches reports whether the playbook trigger accepts this event.
func (e TriggerEvent) Matches(trigger Trigger) bool {
	if trigger.Type != e.Type {
		return false
	}

	switch trigger.Type {
	case TriggerTypeShopifyEvent:
		return trigger.Config.Event == e.Event
	case TriggerTypeEmailIntent:
		return trigger.Config.Intent == e.Intent
	case TriggerTypeScheduled:
		return e.Schedule == "" || trigger.Config.Cron == e.Schedule
	default:
		return false
	}
}
