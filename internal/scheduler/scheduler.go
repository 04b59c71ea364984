// Package scheduler applies due price schedules. The API only records
// schedules; this worker is the component that actually moves a
// scheduled price onto the company product once its effective date
// arrives.
package scheduler

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
)

type Worker struct {
	db       *gorm.DB
	interval time.Duration
}

func NewWorker(db *gorm.DB, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{db: db, interval: interval}
}

// Run polls until the context is cancelled. An initial pass runs
// immediately so a restart catches up without waiting a full interval.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("Schedule worker polling every %s", w.interval)

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Schedule worker stopping")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	applied, err := w.ApplyDue(ctx, time.Now())
	if err != nil {
		log.Printf("Schedule activation pass failed: %v", err)
		return
	}
	if applied > 0 {
		log.Printf("Applied %d price schedule(s)", applied)
	}
}

// ApplyDue activates every unapplied schedule whose effective date has
// passed. Each schedule is applied in its own transaction: the price
// copy and the is_applied flip commit together, and a crash between
// schedules leaves every other schedule either fully applied or
// untouched. Ordering by effective date makes the latest due price win
// when several schedules for one product are overdue.
func (w *Worker) ApplyDue(ctx context.Context, now time.Time) (int, error) {
	var due []models.PriceSchedule
	if err := w.db.WithContext(ctx).
		Where("is_applied = ? AND effective_date <= ?", false, now).
		Order("effective_date, id").
		Find(&due).Error; err != nil {
		return 0, err
	}

	applied := 0
	for _, schedule := range due {
		var won bool
		err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Guarded so a concurrent worker or a manual delete cannot
			// double-apply. Zero rows means someone got here first.
			res := tx.Model(&models.PriceSchedule{}).
				Where("id = ? AND is_applied = ?", schedule.ID, false).
				Updates(map[string]interface{}{
					"is_applied": true,
					"applied_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			won = true

			return tx.Model(&models.CompanyProduct{}).
				Where("id = ?", schedule.CompanyProductID).
				Update("price", schedule.ScheduledPrice).Error
		})
		if err != nil {
			return applied, err
		}
		if won {
			applied++
		}
	}

	return applied, nil
}
