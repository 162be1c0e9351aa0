// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tenant

import (
	"path/filepath"

	"dario.cat/mergo"

	"github.com/gridlhq/flapjack/internal/ferror"
)

// UpdateSettings merges patch over the tenant's current settings (fields
// left zero in patch leave the current value untouched), persists the
// result, and bumps the tenant's generation so cached facet results don't
// outlive the change.
func (m *Manager) UpdateSettings(name string, patch Settings) (Settings, error) {
	handle, err := m.GetOrLoad(name)
	if err != nil {
		return Settings{}, err
	}

	current := handle.Settings()
	if err := mergo.Merge(&current, patch, mergo.WithOverride); err != nil {
		return Settings{}, ferror.Newf(ferror.Internal, "merge settings: %v", err)
	}
	if err := current.Save(filepath.Join(handle.dir, "settings.json")); err != nil {
		return Settings{}, err
	}
	handle.SetSettings(current)
	return current, nil
}
