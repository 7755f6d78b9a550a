// Package edgecase merges edge-case suggestions from the two inference
// sources with the clinician's own additions into one de-duplicated,
// insertion-ordered list.
package edgecase

import "strings"

// EdgeCase is a condition flagged as worth monitoring alongside the primary
// diagnosis. Name is the unique key (case-sensitive, trimmed); FurtherSteps
// is clinician-authored.
type EdgeCase struct {
	Name         string `json:"name"`
	FurtherSteps string `json:"further_steps"`
}

// Consolidate appends any seed name not already present in existing as a new
// entry with empty FurtherSteps. Matching is by exact trimmed name. The
// returned slice preserves existing entries and their order; new seeds are
// appended in seed order. A previously removed name is not blacklisted: if
// its seed is still present it simply re-surfaces here.
func Consolidate(seeds []string, existing []EdgeCase) []EdgeCase {
	out := make([]EdgeCase, len(existing))
	copy(out, existing)

	seen := make(map[string]bool, len(existing)+len(seeds))
	for _, ec := range existing {
		seen[strings.TrimSpace(ec.Name)] = true
	}

	for _, seed := range seeds {
		name := strings.TrimSpace(seed)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, EdgeCase{Name: name})
	}
	return out
}

// Add appends a clinician-entered name, subject to the same dedup rule.
// An empty or duplicate name is a no-op; the second return reports whether
// an entry was added.
func Add(existing []EdgeCase, name string) ([]EdgeCase, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return existing, false
	}
	for _, ec := range existing {
		if strings.TrimSpace(ec.Name) == trimmed {
			return existing, false
		}
	}
	return append(existing, EdgeCase{Name: trimmed}), true
}

// Remove drops the entry at index. An out-of-range index is a no-op.
func Remove(existing []EdgeCase, index int) []EdgeCase {
	if index < 0 || index >= len(existing) {
		return existing
	}
	out := make([]EdgeCase, 0, len(existing)-1)
	out = append(out, existing[:index]...)
	out = append(out, existing[index+1:]...)
	return out
}

// SetFurtherSteps replaces FurtherSteps on the entry matching name. It is a
// pure field mutation: ordering is untouched. The return reports whether a
// matching entry was found.
func SetFurtherSteps(existing []EdgeCase, name, steps string) bool {
	trimmed := strings.TrimSpace(name)
	for i := range existing {
		if strings.TrimSpace(existing[i].Name) == trimmed {
			existing[i].FurtherSteps = steps
			return true
		}
	}
	return false
}

// Names projects the list to its name column, in order.
func Names(list []EdgeCase) []string {
	out := make([]string, len(list))
	for i, ec := range list {
		out[i] = ec.Name
	}
	return out
}
