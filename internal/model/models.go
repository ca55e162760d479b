// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// ModelInfo describes a selectable API model.
type ModelInfo struct {
	ID          string
	Name        string
	Description string
}

// DefaultModelID is used for new sessions and unknown model lookups.
const DefaultModelID = "claude-sonnet-4-20250514"

// apiModels is the fixed registry, in display order.
var apiModels = []ModelInfo{
	{
		ID:          "claude-sonnet-4-20250514",
		Name:        "Sonnet 4",
		Description: "Balanced speed and capability",
	},
	{
		ID:          "claude-haiku-4-5-20251001",
		Name:        "Haiku 4.5",
		Description: "Fastest responses",
	},
}

// Models returns the registry in display order.
func Models() []ModelInfo {
	out := make([]ModelInfo, len(apiModels))
	copy(out, apiModels)
	return out
}

// ModelByID returns the model for the given ID, falling back to the default
// model when the ID is unknown.
func ModelByID(id string) ModelInfo {
	for _, m := range apiModels {
		if m.ID == id {
			return m
		}
	}
	return ModelByID(DefaultModelID)
}
