package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/compasshq/compass-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPipeline(db *gorm.DB) *WebhookPipeline {
	rollup := NewRollup(db, testLogger())
	notifier := NewNotifier(db, testLogger())
	return NewWebhookPipeline(db, testLogger(), rollup, notifier)
}

func seedIntegration(t *testing.T, db *gorm.DB, objective models.Objective, mapping map[string]string) models.WebhookIntegration {
	t.Helper()
	integration := models.WebhookIntegration{
		ObjectiveID: objective.ID,
		Secret:      "test-secret",
		Status:      "active",
	}
	if mapping != nil {
		data, err := json.Marshal(mapping)
		require.NoError(t, err)
		s := string(data)
		integration.FieldMapping = &s
	}
	require.NoError(t, db.Create(&integration).Error)
	return integration
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestProcessUnknownWebhook(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	_, err := pipeline.Process("does-not-exist", []byte(`{}`), nil)
	whErr, ok := err.(*WebhookError)
	require.True(t, ok)
	assert.Equal(t, 404, whErr.Status)
}

func TestProcessInactiveIntegration(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	org := seedOrg(t, db)
	owner := seedUser(t, db, org, "alice", "alice@acme.io")
	objective := seedObjective(t, db, org, owner, 100)
	integration := seedIntegration(t, db, objective, nil)
	require.NoError(t, db.Model(&integration).Update("status", "inactive").Error)

	_, err := pipeline.Process(integration.WebhookID, []byte(`{}`), nil)
	whErr, ok := err.(*WebhookError)
	require.True(t, ok)
	assert.Equal(t, 403, whErr.Status)
}

func TestProcessInvalidSignature(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	org := seedOrg(t, db)
	owner := seedUser(t, db, org, "alice", "alice@acme.io")
	objective := seedObjective(t, db, org, owner, 100)
	mapping := map[string]string{"current_value": "payload.value"}
	integration := seedIntegration(t, db, objective, mapping)

	payload := []byte(`{"value": 80}`)
	headers := map[string]string{"X-Webhook-Signature": "sha256=deadbeef"}

	_, err := pipeline.Process(integration.WebhookID, payload, headers)
	whErr, ok := err.(*WebhookError)
	require.True(t, ok)
	assert.Equal(t, 401, whErr.Status)

	// The objective is untouched
	var reloaded models.Objective
	require.NoError(t, db.First(&reloaded, "id = ?", objective.ID).Error)
	assert.Equal(t, 0.0, reloaded.CurrentValue)

	// The rejection is audited
	var event models.WebhookEvent
	require.NoError(t, db.Where("integration_id = ?", integration.ID).First(&event).Error)
	assert.False(t, event.Processed)
	require.NotNil(t, event.ErrorMessage)
	assert.Equal(t, "Invalid signature", *event.ErrorMessage)

	var reloadedIntegration models.WebhookIntegration
	require.NoError(t, db.First(&reloadedIntegration, "id = ?", integration.ID).Error)
	assert.Equal(t, 1, reloadedIntegration.FailureCount)
}

func TestProcessValidSignature(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	org := seedOrg(t, db)
	owner := seedUser(t, db, org, "alice", "alice@acme.io")
	objective := seedObjective(t, db, org, owner, 100)
	mapping := map[string]string{"current_value": "payload.value"}
	integration := seedIntegration(t, db, objective, mapping)

	payload := []byte(`{"value": 80}`)
	headers := map[string]string{"X-Hub-Signature-256": sign(payload, "test-secret")}

	result, err := pipeline.Process(integration.WebhookID, payload, headers)
	require.NoError(t, err)
	assert.Equal(t, objective.ID, result.ObjectiveID)
}

func TestProcessCurrentValueMapping(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	org := seedOrg(t, db)
	owner := seedUser(t, db, org, "alice", "alice@acme.io")
	objective := seedObjective(t, db, org, owner, 100)
	mapping := map[string]string{"current_value": "payload.metrics.done"}
	integration := seedIntegration(t, db, objective, mapping)

	result, err := pipeline.Process(integration.WebhookID, []byte(`{"metrics": {"done": 80}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, 80.0, result.Updates["current_value"])

	var reloaded models.Objective
	require.NoError(t, db.First(&reloaded, "id = ?", objective.ID).Error)
	assert.InDelta(t, 80.0, reloaded.CurrentValue, 0.001)
	assert.InDelta(t, 80.0, reloaded.ProgressPercentage, 0.001)

	// Exactly one audit record and one narrative comment
	var updateCount, commentCount int64
	db.Model(&models.ProgressUpdate{}).Where("objective_id = ?", objective.ID).Count(&updateCount)
	db.Model(&models.Comment{}).Where("objective_id = ?", objective.ID).Count(&commentCount)
	assert.Equal(t, int64(1), updateCount)
	assert.Equal(t, int64(1), commentCount)

	// Both are system-attributed
	var update models.ProgressUpdate
	require.NoError(t, db.Where("objective_id = ?", objective.ID).First(&update).Error)
	assert.Nil(t, update.UserID)

	var comment models.Comment
	require.NoError(t, db.Where("objective_id = ?", objective.ID).First(&comment).Error)
	assert.Nil(t, comment.UserID)

	// The event is marked processed with snapshots
	var event models.WebhookEvent
	require.NoError(t, db.Where("integration_id = ?", integration.ID).First(&event).Error)
	assert.True(t, event.Processed)
	require.NotNil(t, event.NewValues)

	var reloadedIntegration models.WebhookIntegration
	require.NoError(t, db.First(&reloadedIntegration, "id = ?", integration.ID).Error)
	assert.Equal(t, 0, reloadedIntegration.FailureCount)
	assert.NotNil(t, reloadedIntegration.LastReceivedAt)
}

func TestProcessClampsProgress(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	org := seedOrg(t, db)
	owner := seedUser(t, db, org, "alice", "alice@acme.io")
	mapping := map[string]string{"progress_percentage": "payload.pct"}

	over := seedObjective(t, db, org, owner, 100)
	overIntegration := seedIntegration(t, db, over, mapping)
	_, err := pipeline.Process(overIntegration.WebhookID, []byte(`{"pct": 150}`), nil)
	require.NoError(t, err)

	var reloaded models.Objective
	require.NoError(t, db.First(&reloaded, "id = ?", over.ID).Error)
	assert.Equal(t, 100.0, reloaded.ProgressPercentage)

	under := seedObjective(t, db, org, owner, 100)
	underIntegration := seedIntegration(t, db, under, mapping)
	_, err = pipeline.Process(underIntegration.WebhookID, []byte(`{"pct": -10}`), nil)
	require.NoError(t, err)

	reloaded = models.Objective{}
	require.NoError(t, db.First(&reloaded, "id = ?", under.ID).Error)
	assert.Equal(t, 0.0, reloaded.ProgressPercentage)
}

func TestProcessTargetValueWinsTieBreak(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	org := seedOrg(t, db)
	owner := seedUser(t, db, org, "alice", "alice@acme.io")
	objective := seedObjective(t, db, org, owner, 100)
	mapping := map[string]string{
		"current_value": "payload.done",
		"target_value":  "payload.total",
	}
	integration := seedIntegration(t, db, objective, mapping)

	// 50/200 = 25%, not 50/100 against the old target
	_, err := pipeline.Process(integration.WebhookID, []byte(`{"done": 50, "total": 200}`), nil)
	require.NoError(t, err)

	var reloaded models.Objective
	require.NoError(t, db.First(&reloaded, "id = ?", objective.ID).Error)
	assert.InDelta(t, 25.0, reloaded.ProgressPercentage, 0.001)
	assert.InDelta(t, 50.0, reloaded.CurrentValue, 0.001)
	assert.InDelta(t, 200.0, reloaded.TargetValue, 0.001)
}

func TestProcessMissingObjectiveMarksEvent(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	org := seedOrg(t, db)
	owner := seedUser(t, db, org, "alice", "alice@acme.io")
	objective := seedObjective(t, db, org, owner, 100)
	integration := seedIntegration(t, db, objective, nil)

	require.NoError(t, db.Unscoped().Delete(&objective).Error)

	_, err := pipeline.Process(integration.WebhookID, []byte(`{}`), nil)
	whErr, ok := err.(*WebhookError)
	require.True(t, ok)
	assert.Equal(t, 404, whErr.Status)

	var event models.WebhookEvent
	require.NoError(t, db.Where("integration_id = ?", integration.ID).First(&event).Error)
	assert.True(t, event.Processed)
	require.NotNil(t, event.ErrorMessage)
	assert.Equal(t, "Objective not found", *event.ErrorMessage)
}

func TestProcessCommentPrefixAndSkippedPaths(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	org := seedOrg(t, db)
	owner := seedUser(t, db, org, "alice", "alice@acme.io")
	objective := seedObjective(t, db, org, owner, 100)
	mapping := map[string]string{
		"current_value": "payload.done",
		"comment":       "payload.note",
		"target_value":  "external.total", // not payload-prefixed, ignored
	}
	integration := seedIntegration(t, db, objective, mapping)

	_, err := pipeline.Process(integration.WebhookID, []byte(`{"done": 10, "note": "CI sync"}`), nil)
	require.NoError(t, err)

	var comment models.Comment
	require.NoError(t, db.Where("objective_id = ?", objective.ID).First(&comment).Error)
	assert.Contains(t, comment.Content, "CI sync")

	var reloaded models.Objective
	require.NoError(t, db.First(&reloaded, "id = ?", objective.ID).Error)
	assert.InDelta(t, 100.0, reloaded.TargetValue, 0.001)
}

func TestProcessPropagatesToParent(t *testing.T) {
	db := setupDB(t)
	pipeline := newPipeline(db)

	org := seedOrg(t, db)
	owner := seedUser(t, db, org, "alice", "alice@acme.io")
	parent := seedObjective(t, db, org, owner, 100)
	child := seedObjective(t, db, org, owner, 100)
	require.NoError(t, db.Model(&child).Update("parent_id", parent.ID).Error)

	// Parent rollup derives from its key results, so give it one
	kr := models.KeyResult{ObjectiveID: parent.ID, Title: "KR", TargetValue: 100, CurrentValue: 30, ProgressPercentage: 30}
	require.NoError(t, db.Create(&kr).Error)

	mapping := map[string]string{"current_value": "payload.done"}
	integration := seedIntegration(t, db, child, mapping)

	_, err := pipeline.Process(integration.WebhookID, []byte(`{"done": 55}`), nil)
	require.NoError(t, err)

	var reloadedParent models.Objective
	require.NoError(t, db.First(&reloadedParent, "id = ?", parent.ID).Error)
	assert.InDelta(t, 30.0, reloadedParent.ProgressPercentage, 0.001)
}

func TestSignatureVerification(t *testing.T) {
	payload := []byte(`{"k":"v"}`)

	assert.True(t, verifySignature(payload, sign(payload, "s3cret"), "s3cret"))
	assert.True(t, verifySignature(payload, sign(payload, "s3cret")[len("sha256="):], "s3cret"))
	assert.False(t, verifySignature(payload, sign(payload, "other"), "s3cret"))
	assert.False(t, verifySignature([]byte(`tampered`), sign(payload, "s3cret"), "s3cret"))
}

func TestLookupPath(t *testing.T) {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"a": {"b": {"c": 7}}, "x": 1}`), &body))

	value, found := lookupPath(body, "a.b.c")
	require.True(t, found)
	assert.Equal(t, 7.0, value)

	_, found = lookupPath(body, "a.b.missing")
	assert.False(t, found)

	_, found = lookupPath(body, "x.y")
	assert.False(t, found)
}
