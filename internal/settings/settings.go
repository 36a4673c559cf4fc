// Package settings validates and persists the reply generator settings
// record.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/tinyship/reviewreply/internal/models"
	"github.com/tinyship/reviewreply/internal/store"
	"github.com/tinyship/reviewreply/internal/textutil"
)

// OptionName is the key the settings record is stored under.
const OptionName = "review_reply_settings"

const (
	DefaultModel = "gpt-4o-mini"
	DefaultTone  = models.ToneFriendly
)

var allowedTones = []models.Tone{
	models.ToneProfessional,
	models.ToneFriendly,
	models.ToneCasual,
}

// OptionStore reads and writes named option values.
type OptionStore interface {
	GetOption(ctx context.Context, name string) (string, error)
	SetOption(ctx context.Context, name, value string) error
}

// Tones returns the allowed tones in display order.
func Tones() []models.Tone {
	return slices.Clone(allowedTones)
}

// IsAllowedTone reports whether tone is one of the allowed values. The
// comparison is exact: "Friendly" is not allowed.
func IsAllowedTone(tone string) bool {
	return slices.Contains(allowedTones, models.Tone(tone))
}

// Defaults returns the settings used before anything has been saved.
func Defaults() models.Settings {
	return models.Settings{
		APIKey: "",
		Model:  DefaultModel,
		Tone:   DefaultTone,
	}
}

// NormalizeTone sanitizes tone and replaces anything outside the allow-list
// with DefaultTone.
func NormalizeTone(tone string) models.Tone {
	tone = textutil.SanitizeField(tone)
	if IsAllowedTone(tone) {
		return models.Tone(tone)
	}
	return DefaultTone
}

// Sanitize turns a submitted form into a settings record. A missing key
// takes its default; an unknown tone is silently replaced by DefaultTone.
func Sanitize(raw map[string]string) models.Settings {
	out := Defaults()

	if v, ok := raw["api_key"]; ok {
		out.APIKey = textutil.SanitizeField(v)
	}
	if v, ok := raw["model"]; ok {
		out.Model = textutil.SanitizeField(v)
	}
	if v, ok := raw["tone"]; ok {
		out.Tone = NormalizeTone(v)
	}
	return out
}

// Load reads the settings record. A record that was never saved yields
// Defaults; fields absent from a stored record keep their defaults.
func Load(ctx context.Context, s OptionStore) (models.Settings, error) {
	out := Defaults()

	raw, err := s.GetOption(ctx, OptionName)
	if errors.Is(err, store.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return models.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	// Records written elsewhere may carry a tone outside the allow-list.
	out.Tone = NormalizeTone(string(out.Tone))
	return out, nil
}

// Save sanitizes raw and persists the result, returning what was stored.
func Save(ctx context.Context, s OptionStore, raw map[string]string) (models.Settings, error) {
	clean := Sanitize(raw)

	data, err := json.Marshal(clean)
	if err != nil {
		return models.Settings{}, fmt.Errorf("encode settings: %w", err)
	}
	if err := s.SetOption(ctx, OptionName, string(data)); err != nil {
		return models.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return clean, nil
}

// MaskKey hides all but the last four characters of an API key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
