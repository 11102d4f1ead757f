package sanitizer

// SanitizeFeatures normalizes a feature tag list: each tag is label-cleaned,
// empties are dropped, and duplicates (case-sensitive) collapse to the
// first occurrence while preserving order.
func SanitizeFeatures(features []string) []string {
	if len(features) == 0 {
		return features
	}

	seen := make(map[string]struct{}, len(features))
	out := features[:0:0]
	for _, f := range features {
		f = SanitizeLabel(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
