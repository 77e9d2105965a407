package restore

import (
	"sort"

	"tenant-backup/internal/snapshot"
)

const (
	// BatchSize is the maximum number of rows one batch carries
	BatchSize = 500
	// InsertGroupSize bounds how many batches go into a single write
	InsertGroupSize = 10
)

// SplitBatches chunks every table's rows into fixed-size batches. Row order
// within a table is preserved and recoverable by concatenating batches in
// ascending index; tables themselves carry no ordering guarantee, the
// executor re-derives dependency order on its own.
func SplitBatches(data map[string][]snapshot.Row, batchSize int) []Batch {
	if batchSize <= 0 {
		batchSize = BatchSize
	}

	tables := make([]string, 0, len(data))
	for name := range data {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	batches := make([]Batch, 0)
	for _, name := range tables {
		rows := data[name]
		for index := 0; index*batchSize < len(rows); index++ {
			end := (index + 1) * batchSize
			if end > len(rows) {
				end = len(rows)
			}
			batches = append(batches, Batch{
				Table: name,
				Index: index,
				Rows:  rows[index*batchSize : end],
			})
		}
	}
	return batches
}

// GroupBatches splits a batch list into bounded-size groups for insertion
func GroupBatches(batches []Batch, groupSize int) [][]Batch {
	if groupSize <= 0 {
		groupSize = InsertGroupSize
	}

	groups := make([][]Batch, 0, (len(batches)+groupSize-1)/groupSize)
	for start := 0; start < len(batches); start += groupSize {
		end := start + groupSize
		if end > len(batches) {
			end = len(batches)
		}
		groups = append(groups, batches[start:end])
	}
	return groups
}
