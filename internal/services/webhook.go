package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/compasshq/compass-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// WebhookPipeline processes one inbound delivery against a webhook
// integration: lookup, signature check, event logging, field mapping,
// objective mutation, audit trail.
type WebhookPipeline struct {
	db       *gorm.DB
	log      zerolog.Logger
	rollup   *Rollup
	notifier *Notifier
}

func NewWebhookPipeline(db *gorm.DB, log zerolog.Logger, rollup *Rollup, notifier *Notifier) *WebhookPipeline {
	return &WebhookPipeline{db: db, log: log, rollup: rollup, notifier: notifier}
}

// WebhookResult is what the receiver endpoint serializes on success.
type WebhookResult struct {
	ObjectiveID uuid.UUID              `json:"objective_id"`
	Updates     map[string]interface{} `json:"updates"`
}

// WebhookError carries the HTTP status the receiver should respond with.
type WebhookError struct {
	Status  int
	Message string
}

func (e *WebhookError) Error() string { return e.Message }

func webhookErr(status int, message string) *WebhookError {
	return &WebhookError{Status: status, Message: message}
}

// Process runs the full pipeline for one delivery. Validation failures
// (unknown webhook, inactive integration, bad signature) return a WebhookError
// without touching objective state; every delivery past the signature check
// leaves a WebhookEvent row regardless of outcome.
func (p *WebhookPipeline) Process(webhookID string, payload []byte, headers map[string]string) (*WebhookResult, error) {
	var integration models.WebhookIntegration
	if err := p.db.Where("webhook_id = ?", webhookID).First(&integration).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, webhookErr(404, "Webhook not found")
		}
		return nil, err
	}

	if integration.Status != "active" {
		return nil, webhookErr(403, "Webhook integration is not active")
	}

	if signature := signatureHeader(headers); signature != "" {
		if !verifySignature(payload, signature, integration.Secret) {
			p.recordFailure(&integration, payload, headers, "Invalid signature")
			return nil, webhookErr(401, "Invalid signature")
		}
	}

	// Log the delivery before attempting any mutation so it stays auditable
	// even if a later stage fails.
	event := models.WebhookEvent{
		IntegrationID: integration.ID,
		Payload:       string(payload),
		Headers:       marshalHeaders(headers),
		Processed:     false,
	}
	if err := p.db.Create(&event).Error; err != nil {
		return nil, err
	}

	result, err := p.apply(&integration, &event, payload)
	if err != nil {
		if whErr, ok := err.(*WebhookError); ok {
			return nil, whErr
		}
		// Unexpected failure: record it on the event, bump the failure
		// counter, and surface a generic 500.
		p.log.Error().Err(err).
			Str("webhook_id", webhookID).
			Str("event_id", event.ID.String()).
			Msg("webhook processing failed")
		msg := err.Error()
		p.db.Model(&event).Updates(map[string]interface{}{"error_message": msg})
		p.db.Model(&integration).Update("failure_count", integration.FailureCount+1)
		return nil, webhookErr(500, "Webhook processing failed")
	}

	return result, nil
}

// apply covers the mutation stages: objective resolution, field mapping,
// clamping, persistence, audit trail, parent rollup, completion bookkeeping.
func (p *WebhookPipeline) apply(integration *models.WebhookIntegration, event *models.WebhookEvent, payload []byte) (*WebhookResult, error) {
	var objective models.Objective
	if err := p.db.First(&objective, "id = ?", integration.ObjectiveID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			msg := "Objective not found"
			p.db.Model(event).Updates(map[string]interface{}{
				"processed":     true,
				"error_message": msg,
			})
			return nil, webhookErr(404, msg)
		}
		return nil, err
	}

	var body map[string]interface{}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	mapped := extractMappedFields(integration.FieldMapping, body)

	before := valueSnapshot(&objective)
	changes := applyMappedValues(&objective, mapped)

	if len(changes) == 0 {
		p.complete(integration, event, before, before)
		return &WebhookResult{ObjectiveID: objective.ID, Updates: changes}, nil
	}

	if err := p.db.Save(&objective).Error; err != nil {
		return nil, err
	}

	after := valueSnapshot(&objective)

	// Webhook changes are system-attributed: nil user on audit and narration.
	update := models.ProgressUpdate{
		ObjectiveID:      objective.ID,
		PreviousValue:    before["current_value"],
		NewValue:         after["current_value"],
		PreviousProgress: before["progress_percentage"],
		NewProgress:      after["progress_percentage"],
		Note:             "Updated via webhook",
	}
	if err := p.db.Create(&update).Error; err != nil {
		return nil, err
	}

	comment := models.Comment{
		ObjectiveID: objective.ID,
		Content:     narrate(mapped, before, after),
	}
	if err := p.db.Create(&comment).Error; err != nil {
		return nil, err
	}

	if objective.ParentID != nil {
		if _, err := p.rollup.Recalculate(*objective.ParentID); err != nil {
			return nil, err
		}
	}

	p.complete(integration, event, before, after)

	p.notifier.FanOut(&objective, nil, Event{
		Type:             "progress_update",
		Title:            "Progress updated",
		Body:             fmt.Sprintf("%q was updated via webhook", objective.Title),
		ObjectiveID:      objective.ID,
		ProgressUpdateID: &update.ID,
	})

	return &WebhookResult{ObjectiveID: objective.ID, Updates: changes}, nil
}

// complete marks the event processed with before/after snapshots and resets
// the integration's failure bookkeeping.
func (p *WebhookPipeline) complete(integration *models.WebhookIntegration, event *models.WebhookEvent, before, after map[string]float64) {
	prev, _ := json.Marshal(before)
	next, _ := json.Marshal(after)
	p.db.Model(event).Updates(map[string]interface{}{
		"processed":       true,
		"previous_values": string(prev),
		"new_values":      string(next),
	})
	p.db.Model(integration).Updates(map[string]interface{}{
		"failure_count":    0,
		"last_received_at": time.Now(),
	})
}

// recordFailure logs a rejected delivery and bumps the failure counter.
func (p *WebhookPipeline) recordFailure(integration *models.WebhookIntegration, payload []byte, headers map[string]string, message string) {
	event := models.WebhookEvent{
		IntegrationID: integration.ID,
		Payload:       string(payload),
		Headers:       marshalHeaders(headers),
		Processed:     false,
		ErrorMessage:  &message,
	}
	if err := p.db.Create(&event).Error; err != nil {
		p.log.Error().Err(err).Str("webhook_id", integration.WebhookID).Msg("failed to log rejected delivery")
	}
	if err := p.db.Model(integration).Update("failure_count", integration.FailureCount+1).Error; err != nil {
		p.log.Error().Err(err).Str("webhook_id", integration.WebhookID).Msg("failed to bump failure count")
	}
}

// signatureHeader returns the supplied digest, accepting either header form.
func signatureHeader(headers map[string]string) string {
	for key, value := range headers {
		switch strings.ToLower(key) {
		case "x-webhook-signature", "x-hub-signature-256":
			return value
		}
	}
	return ""
}

// verifySignature checks an HMAC-SHA256 digest of the raw payload, provided
// as "sha256=<hex>" or bare hex, using a constant-time comparison.
func verifySignature(payload []byte, signature, secret string) bool {
	supplied := strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(supplied))
}

// mappableFields are the only internal fields a webhook may set.
var mappableFields = map[string]bool{
	"progress_percentage": true,
	"current_value":       true,
	"target_value":        true,
	"comment":             true,
}

// extractMappedFields walks the integration's field mapping (internal field
// -> "payload."-prefixed dotted path) against the decoded body. Unmapped or
// absent paths are skipped; non-payload paths are ignored.
func extractMappedFields(fieldMapping *string, body map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if fieldMapping == nil {
		return out
	}

	var mapping map[string]string
	if err := json.Unmarshal([]byte(*fieldMapping), &mapping); err != nil {
		return out
	}

	for field, path := range mapping {
		if !mappableFields[field] {
			continue
		}
		rest, ok := strings.CutPrefix(path, "payload.")
		if !ok {
			continue
		}
		if value, found := lookupPath(body, rest); found {
			out[field] = value
		}
	}
	return out
}

// lookupPath resolves a dotted path against nested JSON objects.
func lookupPath(body map[string]interface{}, path string) (interface{}, bool) {
	current := interface{}(body)
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// applyMappedValues mutates the objective from the mapped fields and returns
// the set of applied changes. Order matters: a mapped current_value
// recomputes progress over any mapped progress_percentage, and a mapped
// target_value recomputes progress last, against the new target.
func applyMappedValues(objective *models.Objective, mapped map[string]interface{}) map[string]interface{} {
	changes := make(map[string]interface{})

	if raw, ok := mapped["progress_percentage"]; ok {
		if value, ok := asFloat(raw); ok {
			objective.ProgressPercentage = clampProgress(value)
			changes["progress_percentage"] = objective.ProgressPercentage
		}
	}

	if raw, ok := mapped["current_value"]; ok {
		if value, ok := asFloat(raw); ok {
			objective.CurrentValue = value
			changes["current_value"] = value
			if objective.TargetValue > 0 {
				objective.ProgressPercentage = clampProgress(value / objective.TargetValue * 100)
				changes["progress_percentage"] = objective.ProgressPercentage
			}
		}
	}

	if raw, ok := mapped["target_value"]; ok {
		if value, ok := asFloat(raw); ok {
			objective.TargetValue = value
			changes["target_value"] = value
			if value > 0 {
				objective.ProgressPercentage = clampProgress(objective.CurrentValue / value * 100)
				changes["progress_percentage"] = objective.ProgressPercentage
			}
		}
	}

	return changes
}

func clampProgress(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// narrate builds the system comment summarizing before/after values, using a
// webhook-supplied comment string as prefix when one was mapped.
func narrate(mapped map[string]interface{}, before, after map[string]float64) string {
	var parts []string
	for _, field := range []string{"progress_percentage", "current_value", "target_value"} {
		if before[field] != after[field] {
			parts = append(parts, fmt.Sprintf("%s: %.2f -> %.2f", field, before[field], after[field]))
		}
	}

	summary := "Webhook update"
	if len(parts) > 0 {
		summary = "Webhook update: " + strings.Join(parts, ", ")
	}

	if raw, ok := mapped["comment"]; ok {
		if text, ok := raw.(string); ok && text != "" {
			return text + " | " + summary
		}
	}
	return summary
}

func valueSnapshot(objective *models.Objective) map[string]float64 {
	return map[string]float64{
		"progress_percentage": objective.ProgressPercentage,
		"current_value":       objective.CurrentValue,
		"target_value":        objective.TargetValue,
	}
}

func marshalHeaders(headers map[string]string) string {
	data, err := json.Marshal(headers)
	if err != nil {
		return "{}"
	}
	return string(data)
}
