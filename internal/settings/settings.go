package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collections/internal/models"
)

const (
	KeyLLMBaseURL = "llm.base_url"
	KeyLLMAPIKey  = "llm.api_key"
	KeyLLMModel   = "llm.model"
)

type LLMSettings struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Store persists runtime settings in the app_settings table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// LoadLLM returns the saved LLM settings. Keys never saved come back empty.
func (s *Store) LoadLLM(ctx context.Context) (LLMSettings, error) {
	out := LLMSettings{}
	keys := []string{KeyLLMBaseURL, KeyLLMAPIKey, KeyLLMModel}
	var rows []models.AppSetting
	if err := s.db.WithContext(ctx).Where("setting_key IN ?", keys).Find(&rows).Error; err != nil {
		return out, err
	}
	for _, row := range rows {
		switch row.Key {
		case KeyLLMBaseURL:
			out.BaseURL = row.Value
		case KeyLLMAPIKey:
			out.APIKey = row.Value
		case KeyLLMModel:
			out.Model = row.Value
		}
	}
	return out, nil
}

// SaveLLM upserts the non-empty fields of cfg in one transaction.
func (s *Store) SaveLLM(ctx context.Context, cfg LLMSettings) error {
	var rows []models.AppSetting
	for key, value := range map[string]string{
		KeyLLMBaseURL: cfg.BaseURL,
		KeyLLMAPIKey:  cfg.APIKey,
		KeyLLMModel:   cfg.Model,
	} {
		if value != "" {
			rows = append(rows, models.AppSetting{Key: key, Value: value})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "setting_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
