package screening

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RankedEntry is one classified outcome.
type RankedEntry struct {
	Name    string
	Outcome *Outcome
	Passes  bool
}

// ParseCutoff validates a raw cutoff value. Only integers inside [0,100]
// are accepted; anything else is rejected here so Classify never has to.
func ParseCutoff(raw string) (int, error) {
	cutoff, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("cutoff must be an integer: %w", err)
	}
	if cutoff < 0 || cutoff > 100 {
		return 0, fmt.Errorf("cutoff %d is outside the range [0, 100]", cutoff)
	}
	return cutoff, nil
}

// Classify partitions and orders the outcomes against the cutoff. Passing
// entries come first; inside each partition entries sort by match
// percentage descending, stable for ties. A failed outcome counts as 0 for
// both the pass test and the sort key, so it sinks to the bottom.
func Classify(results *Results, cutoff int) []RankedEntry {
	entries := make([]RankedEntry, 0, results.Len())
	for _, outcome := range results.List() {
		entries = append(entries, RankedEntry{
			Name:    outcome.Filename,
			Outcome: outcome,
			Passes:  !outcome.Failed() && outcome.Percentage() >= float64(cutoff),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Passes != entries[j].Passes {
			return entries[i].Passes
		}
		return entries[i].Outcome.Percentage() > entries[j].Outcome.Percentage()
	})

	return entries
}

// PassingNames returns the names of the passing entries, in ranked order.
func PassingNames(entries []RankedEntry) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Passes {
			names = append(names, entry.Name)
		}
	}
	return names
}
