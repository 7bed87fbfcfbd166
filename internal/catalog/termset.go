package catalog

// AddTermTag returns tags with tag appended if absent. The bool reports whether a change
// was made. The input slice is never modified.
func AddTermTag(tags []string, tag string) ([]string, bool) {
	for _, t := range tags {
		if t == tag {
			return tags, false
		}
	}
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, tag), true
}

// NormalizeTermTags drops duplicate and empty tags, keeping first occurrence order.
func NormalizeTermTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// EqualTermTags compares two term sequences element by element. A nil and an empty slice
// are equal, matching how an unset term column reads back.
func EqualTermTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
