package service

import (
	"context"
	"strings"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/holidays"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// PUBLIC HOLIDAYS
// =============================================================================

// SyncHolidays stores the generated German holidays of year for region that
// are not stored yet and returns the added rows. An empty region means the
// engine's region.
func (e *Engine) SyncHolidays(ctx context.Context, actor Actor, year int, region string) ([]worktime.PublicHoliday, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if region == "" {
		region = e.region
	}
	region = strings.ToUpper(region)
	if !holidays.ValidState(region) {
		return nil, &generic.ValidationError{Field: "region", Reason: "unknown German state " + region}
	}
	if year < 1995 || year > 2200 {
		return nil, &generic.ValidationError{Field: "year", Reason: "must be between 1995 and 2200"}
	}

	var added []worktime.PublicHoliday
	err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		stored, err := tx.ListHolidays(ctx, region, generic.YearPeriod(year))
		if err != nil {
			return err
		}
		for _, h := range holidays.Missing(holidays.German(year, region), stored) {
			h.ID = generic.RecordID(e.newID())
			if err := tx.SaveHoliday(ctx, h); err != nil {
				return err
			}
			added = append(added, h)
		}
		if len(added) == 0 {
			return nil
		}
		return e.record(ctx, tx, actor, generic.AuditHolidaysSynced, "", "", map[string]any{
			"year": year, "region": region, "added": len(added),
		})
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Int("year", year).Str("region", region).Int("added", len(added)).Msg("holidays synced")
	if len(added) > 0 {
		if _, err := e.RefreshAllLedgers(ctx); err != nil {
			e.log.Warn().Err(err).Msg("ledger refresh after holiday sync incomplete")
		}
	}
	return added, nil
}

// AddHoliday stores a manually maintained holiday.
func (e *Engine) AddHoliday(ctx context.Context, actor Actor, h worktime.PublicHoliday) (worktime.PublicHoliday, error) {
	if err := requireAdmin(actor); err != nil {
		return worktime.PublicHoliday{}, err
	}
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return worktime.PublicHoliday{}, &generic.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if h.Date.IsZero() {
		return worktime.PublicHoliday{}, &generic.ValidationError{Field: "date", Reason: "must be set"}
	}
	if h.Region == "" {
		h.Region = e.region
	}
	h.ID = generic.RecordID(e.newID())
	if err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		return tx.SaveHoliday(ctx, h)
	}); err != nil {
		return worktime.PublicHoliday{}, err
	}
	if _, err := e.RefreshAllLedgers(ctx); err != nil {
		e.log.Warn().Err(err).Msg("ledger refresh after holiday change incomplete")
	}
	return h, nil
}

// DeleteHoliday removes a holiday.
func (e *Engine) DeleteHoliday(ctx context.Context, actor Actor, id generic.RecordID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		return tx.DeleteHoliday(ctx, id)
	}); err != nil {
		return err
	}
	if _, err := e.RefreshAllLedgers(ctx); err != nil {
		e.log.Warn().Err(err).Msg("ledger refresh after holiday change incomplete")
	}
	return nil
}

// ListHolidays returns the holidays of region in year.
func (e *Engine) ListHolidays(ctx context.Context, region string, year int) ([]worktime.PublicHoliday, error) {
	if region == "" {
		region = e.region
	}
	return e.store.ListHolidays(ctx, region, generic.YearPeriod(year))
}
