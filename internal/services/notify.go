package services

import (
	"strings"
	"sync"

	"github.com/compasshq/compass-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Notifier writes one Notification row per stakeholder of an objective.
// Delivery is at-most-once and best-effort: each insert runs as its own task,
// failures are logged and never propagate to the caller.
type Notifier struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewNotifier(db *gorm.DB, log zerolog.Logger) *Notifier {
	return &Notifier{db: db, log: log}
}

// Event describes what happened, for rendering notification rows.
type Event struct {
	Type             string // comment, progress_update, objective_update
	Title            string
	Body             string
	ObjectiveID      uuid.UUID
	CommentID        *uuid.UUID
	ProgressUpdateID *uuid.UUID
}

// FanOut notifies the stakeholder set of an objective: owner, contributors
// and subscribers, deduplicated, minus the actor (nil actor notifies
// everyone). Blocks until all inserts have been attempted.
func (n *Notifier) FanOut(objective *models.Objective, actorID *uuid.UUID, event Event) {
	recipients := n.stakeholders(objective, actorID)

	var wg sync.WaitGroup
	for _, userID := range recipients {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			n.deliver(userID, event)
		}(userID)
	}
	wg.Wait()
}

// NotifyMentions resolves @name / @email tokens in content against the
// organization's user directory (case-insensitive exact match) and delivers a
// mention notification per resolved user, excluding self-mentions.
func (n *Notifier) NotifyMentions(orgID uuid.UUID, actorID *uuid.UUID, content string, event Event) {
	tokens := mentionTokens(content)
	if len(tokens) == 0 {
		return
	}

	var users []models.User
	if err := n.db.Where("organization_id = ?", orgID).Find(&users).Error; err != nil {
		n.log.Error().Err(err).Msg("mention resolution: user directory load failed")
		return
	}

	event.Type = "mention"

	seen := make(map[uuid.UUID]bool)
	var wg sync.WaitGroup
	for _, token := range tokens {
		lower := strings.ToLower(token)
		for _, user := range users {
			if strings.ToLower(user.Name) != lower && strings.ToLower(user.Email) != lower {
				continue
			}
			if actorID != nil && user.ID == *actorID {
				continue
			}
			if seen[user.ID] {
				continue
			}
			seen[user.ID] = true

			wg.Add(1)
			go func(userID uuid.UUID) {
				defer wg.Done()
				n.deliver(userID, event)
			}(user.ID)
		}
	}
	wg.Wait()
}

func (n *Notifier) deliver(userID uuid.UUID, event Event) {
	notif := models.Notification{
		UserID:           userID,
		Type:             event.Type,
		Title:            event.Title,
		Body:             event.Body,
		ObjectiveID:      &event.ObjectiveID,
		CommentID:        event.CommentID,
		ProgressUpdateID: event.ProgressUpdateID,
	}
	if err := n.db.Create(&notif).Error; err != nil {
		n.log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("type", event.Type).
			Msg("notification insert failed")
	}
}

// stakeholders returns owner + contributors + subscribers, deduplicated,
// minus the actor.
func (n *Notifier) stakeholders(objective *models.Objective, actorID *uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID

	add := func(id uuid.UUID) {
		if actorID != nil && id == *actorID {
			return
		}
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	add(objective.OwnerID)

	var contributors []models.ObjectiveContributor
	if err := n.db.Where("objective_id = ?", objective.ID).Find(&contributors).Error; err != nil {
		n.log.Error().Err(err).Msg("fan-out: contributor load failed")
	}
	for _, c := range contributors {
		add(c.UserID)
	}

	var subscriptions []models.ObjectiveSubscription
	if err := n.db.Where("objective_id = ?", objective.ID).Find(&subscriptions).Error; err != nil {
		n.log.Error().Err(err).Msg("fan-out: subscriber load failed")
	}
	for _, s := range subscriptions {
		add(s.UserID)
	}

	return out
}

// mentionTokens extracts the text following each @ up to a terminator.
// Emails survive intact so @alice@example.com resolves by email.
func mentionTokens(content string) []string {
	var tokens []string
	for i := 0; i < len(content); i++ {
		if content[i] != '@' {
			continue
		}
		end := i + 1
		for end < len(content) && !isMentionBoundary(content[end]) {
			end++
		}
		token := strings.TrimRight(content[i+1:end], ".")
		if token != "" {
			tokens = append(tokens, token)
		}
		i = end - 1
	}
	return tokens
}

func isMentionBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', ',', ';', ':', '!', '?', '(', ')', '"', '\'':
		return true
	}
	return false
}
