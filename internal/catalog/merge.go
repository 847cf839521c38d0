package catalog

// Merge collapses a flattened multi-provider result list to one record
// per merge key. Output order is first-seen order of distinct keys and
// is held as an invariant; Merge(Merge(x)) == Merge(x). On collision
// the incumbent is replaced only when it lacks a direct document link
// and the incoming record has one: first-actionable-wins, never
// last-wins or most-complete-wins.
func Merge(records []Record) []Record {
	index := make(map[string]int, len(records))
	merged := make([]Record, 0, len(records))
	for _, r := range records {
		key := r.MergeKey()
		at, seen := index[key]
		if !seen {
			index[key] = len(merged)
			merged = append(merged, r)
			continue
		}
		if !merged[at].Actionable() && r.Actionable() {
			merged[at] = r
		}
	}
	return merged
}

// FilterActionable keeps only records with a direct document link.
func FilterActionable(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Actionable() {
			out = append(out, r)
		}
	}
	return out
}
