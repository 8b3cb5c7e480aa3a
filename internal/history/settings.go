package history

import (
	"context"
	"encoding/json"
	"time"
)

const settingsKey = "history_retention"

// RetentionSettings contains history retention configuration.
type RetentionSettings struct {
	Enabled       bool `json:"enabled"`
	RetentionDays int  `json:"retentionDays"`
}

// DefaultRetentionSettings returns default retention settings.
func DefaultRetentionSettings() RetentionSettings {
	return RetentionSettings{
		Enabled:       true,
		RetentionDays: 365,
	}
}

// GetRetentionSettings loads retention settings.
func (s *Service) GetRetentionSettings(ctx context.Context) (RetentionSettings, error) {
	raw, ok, err := s.settings.Get(ctx, settingsKey)
	if err != nil {
		return RetentionSettings{}, err
	}
	if !ok {
		return DefaultRetentionSettings(), nil
	}

	var settings RetentionSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return DefaultRetentionSettings(), nil //nolint:nilerr // Invalid JSON, use defaults
	}
	return settings, nil
}

// SaveRetentionSettings saves retention settings.
func (s *Service) SaveRetentionSettings(ctx context.Context, settings RetentionSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.settings.Set(ctx, settingsKey, data)
}

// CleanupOldEntries deletes entries older than the retention period.
func (s *Service) CleanupOldEntries(ctx context.Context) error {
	settings, err := s.GetRetentionSettings(ctx)
	if err != nil {
		return err
	}

	if !settings.Enabled || settings.RetentionDays <= 0 {
		return nil
	}

	// created_at is stored by CURRENT_TIMESTAMP in UTC text form.
	cutoff := time.Now().UTC().AddDate(0, 0, -settings.RetentionDays).Format(time.DateTime)
	res, err := s.db.ExecContext(ctx, `DELETE FROM favourite_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info().Int64("deleted", n).Msg("Pruned old favourites history")
	}
	return nil
}
