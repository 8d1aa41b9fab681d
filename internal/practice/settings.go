package practice

import (
	"context"
	"strconv"
	"time"

	"github.com/gulley/versify/pkg/match"
	"github.com/gulley/versify/pkg/reveal"
	"github.com/gulley/versify/pkg/store"
)

// Setting names as stored under the settings kind of the store.
const (
	SettingMode      = "mode"
	SettingShowDots  = "showDots"
	SettingShowLine  = "showLine"
	SettingHintDelay = "hintDelay"
	SettingPrompt    = "prompt"
)

// Settings are the per-session display preferences.
type Settings struct {
	ShowDots  bool
	ShowLine  bool
	HintDelay time.Duration
	Prompt    reveal.Prompt
}

// DefaultSettings are used when neither configuration nor the store say
// otherwise.
func DefaultSettings() Settings {
	return Settings{
		ShowDots:  true,
		HintDelay: 2 * time.Second,
		Prompt:    reveal.PromptDots,
	}
}

func (s Settings) options(showHint bool) reveal.Options {
	return reveal.Options{
		ShowDots: s.ShowDots,
		ShowHint: showHint,
		ShowLine: s.ShowLine,
		Prompt:   s.Prompt,
	}
}

// Patch is a partial settings update. Nil fields are left unchanged.
type Patch struct {
	ShowDots  *bool
	ShowLine  *bool
	HintDelay *time.Duration
	Prompt    *reveal.Prompt
}

// Apply returns s with the non-nil fields of p applied. Negative delays are
// clamped to zero.
func (p Patch) Apply(s Settings) Settings {
	if p.ShowDots != nil {
		s.ShowDots = *p.ShowDots
	}
	if p.ShowLine != nil {
		s.ShowLine = *p.ShowLine
	}
	if p.HintDelay != nil {
		s.HintDelay = max(*p.HintDelay, 0)
	}
	if p.Prompt != nil {
		s.Prompt = *p.Prompt
	}
	return s
}

// LoadSettings overlays the stored preferences on def. Values that are
// missing or do not parse keep their default.
func LoadSettings(ctx context.Context, svc *store.Service, def Settings) Settings {
	s := def
	if v, err := strconv.ParseBool(svc.Setting(ctx, SettingShowDots, "")); err == nil {
		s.ShowDots = v
	}
	if v, err := strconv.ParseBool(svc.Setting(ctx, SettingShowLine, "")); err == nil {
		s.ShowLine = v
	}
	// Stored in seconds, as the delay slider reports it.
	if v, err := strconv.ParseFloat(svc.Setting(ctx, SettingHintDelay, ""), 64); err == nil && v >= 0 {
		s.HintDelay = time.Duration(v * float64(time.Second))
	}
	if raw := svc.Setting(ctx, SettingPrompt, ""); raw != "" {
		if p, err := reveal.ParsePrompt(raw); err == nil {
			s.Prompt = p
		}
	}
	return s
}

// SaveSettings writes s to the store. It reports whether every write
// succeeded.
func SaveSettings(ctx context.Context, svc *store.Service, s Settings) bool {
	ok := svc.SetSetting(ctx, SettingShowDots, strconv.FormatBool(s.ShowDots))
	ok = svc.SetSetting(ctx, SettingShowLine, strconv.FormatBool(s.ShowLine)) && ok
	ok = svc.SetSetting(ctx, SettingHintDelay, strconv.FormatFloat(s.HintDelay.Seconds(), 'f', -1, 64)) && ok
	ok = svc.SetSetting(ctx, SettingPrompt, string(s.Prompt)) && ok
	return ok
}

// LoadMode returns the stored default mode, or def.
func LoadMode(ctx context.Context, svc *store.Service, def match.Mode) match.Mode {
	if m, err := match.ParseMode(svc.Setting(ctx, SettingMode, "")); err == nil {
		return m
	}
	return def
}
