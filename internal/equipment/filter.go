package equipment

import "strings"

// searchTerm pairs a searchable column with the text supplied for it. The
// column name is informational; all terms are matched through the combined
// text index rather than per-column predicates.
type searchTerm struct {
	Field string
	Value string
}

// collectSearchTerms gathers every textual query field that was supplied.
func collectSearchTerms(req QueryRequest) []searchTerm {
	fields := []struct {
		name  string
		value *string
	}{
		{"name", req.Name},
		{"manufacturer", req.Manufacturer},
		{"model", req.Model},
		{"misc_identifier", req.MiscIdentifier},
		{"location_specifier", req.LocationSpecifier},
		{"category", req.Category},
		{"asset_id", req.AssetID},
	}

	var terms []searchTerm
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		terms = append(terms, searchTerm{Field: f.name, Value: *f.value})
	}
	return terms
}

// textPredicate builds a tsquery condition matching records where any word
// of any supplied term appears in the combined text vector. Words within a
// term are ORed like words across terms; the whole predicate is ANDed with
// the rest of the filter by the caller.
func textPredicate(terms []searchTerm) (string, []any) {
	var words []string
	for _, term := range terms {
		for _, word := range strings.Fields(term.Value) {
			words = append(words, word)
		}
	}
	if len(words) == 0 {
		return "", nil
	}

	parts := make([]string, len(words))
	args := make([]any, len(words))
	for i, word := range words {
		parts[i] = "plainto_tsquery('simple', ?)"
		args[i] = word
	}

	return "search_vector @@ (" + strings.Join(parts, " || ") + ")", args
}

// buildUpdates translates an UpdateRequest into the column change-set.
// Presence is pointer-based: supplied zero values are written, absent
// fields are left alone. An empty assetID clears the column so the unique
// index never collides on empty strings.
func buildUpdates(req UpdateRequest) map[string]any {
	updates := map[string]any{}

	if req.AssetID != nil {
		updates["asset_id"] = normalizeAssetID(req.AssetID)
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Manufacturer != nil {
		updates["manufacturer"] = *req.Manufacturer
	}
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.MiscIdentifier != nil {
		updates["misc_identifier"] = *req.MiscIdentifier
	}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.LocationSpecifier != nil {
		updates["location_specifier"] = *req.LocationSpecifier
	}
	if req.Manager != nil {
		updates["manager"] = *req.Manager
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}

	return updates
}

// normalizeAssetID maps absent or empty asset ids to NULL.
func normalizeAssetID(assetID *string) *string {
	if assetID == nil || *assetID == "" {
		return nil
	}
	return assetID
}
