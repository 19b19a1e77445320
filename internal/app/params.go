package app

import (
	"errors"
	"fmt"

	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/store"
)

// loadParameters overlays persisted thresholds on base. Missing keys keep
// the base value.
func loadParameters(s *store.Store, base fatigue.Parameters) (fatigue.Parameters, error) {
	settings := s.Settings()
	var u fatigue.ParameterUpdate

	if v, err := settings.GetFloat(store.KeyEARThreshold); err == nil {
		u.EARThreshold = &v
	} else if !errors.Is(err, store.ErrNotFound) {
		return base, fmt.Errorf("load %s: %w", store.KeyEARThreshold, err)
	}

	if v, err := settings.GetFloat(store.KeyMARThreshold); err == nil {
		u.MARThreshold = &v
	} else if !errors.Is(err, store.ErrNotFound) {
		return base, fmt.Errorf("load %s: %w", store.KeyMARThreshold, err)
	}

	if v, err := settings.GetInt(store.KeyFatigueEventThreshold); err == nil {
		u.FatigueEventThreshold = &v
	} else if !errors.Is(err, store.ErrNotFound) {
		return base, fmt.Errorf("load %s: %w", store.KeyFatigueEventThreshold, err)
	}

	return base.Apply(u), nil
}

// saveParameters persists only the fields set in u. Values in effect that
// came from calibration are never written.
func saveParameters(s *store.Store, u fatigue.ParameterUpdate) error {
	settings := s.Settings()
	if u.EARThreshold != nil && *u.EARThreshold > 0 {
		if err := settings.SetFloat(store.KeyEARThreshold, *u.EARThreshold); err != nil {
			return fmt.Errorf("save parameters: %w", err)
		}
	}
	if u.MARThreshold != nil && *u.MARThreshold > 0 {
		if err := settings.SetFloat(store.KeyMARThreshold, *u.MARThreshold); err != nil {
			return fmt.Errorf("save parameters: %w", err)
		}
	}
	if u.FatigueEventThreshold != nil && *u.FatigueEventThreshold > 0 {
		if err := settings.SetInt(store.KeyFatigueEventThreshold, *u.FatigueEventThreshold); err != nil {
			return fmt.Errorf("save parameters: %w", err)
		}
	}
	return nil
}
