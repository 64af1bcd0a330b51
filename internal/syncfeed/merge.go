// Merge stage: unions the per-family candidate batches into the single
// global feed order.
package syncfeed

import "sort"

// Merge concatenates the per-source batches and sorts them by
// (updated_at, family priority, tie key) ascending. The order is total over
// distinct rows, so re-running against an unchanged snapshot always yields
// the same sequence.
func Merge(batches ...[]ChangeRow) []ChangeRow {
	var total int
	for _, b := range batches {
		total += len(b)
	}
	merged := make([]ChangeRow, 0, total)
	for _, b := range batches {
		merged = append(merged, b...)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].OrderKey().Compare(merged[j].OrderKey()) < 0
	})
	return merged
}
