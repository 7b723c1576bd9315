package services

import (
	"time"

	"github.com/compasshq/compass-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Rollup recomputes an objective's progress from its key results and persists
// the result. Single read, single write, last writer wins.
type Rollup struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewRollup(db *gorm.DB, log zerolog.Logger) *Rollup {
	return &Rollup{db: db, log: log}
}

// Recalculate loads the objective's key results and writes back the derived
// progress_percentage and current_value. A missing objective is a no-op
// returning 0, not an error. With no key results both fields reset to 0: an
// objective with nothing measurable cannot claim partial progress.
func (r *Rollup) Recalculate(objectiveID uuid.UUID) (float64, error) {
	var objective models.Objective
	if err := r.db.First(&objective, "id = ?", objectiveID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}

	var keyResults []models.KeyResult
	if err := r.db.Where("objective_id = ?", objectiveID).Find(&keyResults).Error; err != nil {
		return 0, err
	}

	progress := 0.0
	current := 0.0
	if len(keyResults) > 0 {
		sum := 0.0
		for _, kr := range keyResults {
			sum += kr.ProgressPercentage
		}
		progress = sum / float64(len(keyResults))

		target := objective.TargetValue
		if target <= 0 {
			target = 100
		}
		current = progress / 100 * target
	}

	err := r.db.Model(&objective).Updates(map[string]interface{}{
		"progress_percentage": progress,
		"current_value":       current,
		"updated_at":          time.Now(),
	}).Error
	if err != nil {
		r.log.Error().Err(err).Str("objective_id", objectiveID.String()).Msg("rollup write failed")
		return progress, err
	}

	return progress, nil
}
