// Package batch partitions normalized records into fixed-size load batches
// for the upsert path.
package batch

import (
	"iter"
	"slices"

	"github.com/gyeh/bolagsload/internal/model"
)

// Count returns the number of batches Chunks yields for n records.
func Count(n, size int) int {
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Chunks lazily yields records in input order as batches of at most size
// records; only the last batch may be smaller. It panics if size < 1.
// Iteration restarts from the first record on every call.
func Chunks(recs []*model.OrganizationRecord, size int) iter.Seq[model.LoadBatch] {
	if size < 1 {
		panic("batch: chunk size must be greater than zero")
	}
	total := Count(len(recs), size)
	return func(yield func(model.LoadBatch) bool) {
		num, offset := 0, 0
		for chunk := range slices.Chunk(recs, size) {
			num++
			b := model.LoadBatch{
				Number:  num,
				Total:   total,
				Offset:  offset,
				Records: chunk,
			}
			offset += len(chunk)
			if !yield(b) {
				return
			}
		}
	}
}

// Dedupe collapses records that share a natural key within one batch. The
// last occurrence wins and takes the position of the first. It returns the
// deduplicated batch and how many records were dropped; the input is not
// modified.
func Dedupe(b model.LoadBatch) (model.LoadBatch, int) {
	pos := make(map[string]int, len(b.Records))
	out := make([]*model.OrganizationRecord, 0, len(b.Records))
	for _, r := range b.Records {
		if i, ok := pos[r.OrganisationsIdentitet]; ok {
			out[i] = r
			continue
		}
		pos[r.OrganisationsIdentitet] = len(out)
		out = append(out, r)
	}
	dropped := len(b.Records) - len(out)
	b.Records = out
	return b, dropped
}
