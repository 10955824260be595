package batch

import (
	"fmt"
	"testing"

	"github.com/gyeh/bolagsload/internal/model"
)

func makeRecords(n int) []*model.OrganizationRecord {
	recs := make([]*model.OrganizationRecord, n)
	for i := range recs {
		recs[i] = &model.OrganizationRecord{OrganisationsIdentitet: fmt.Sprintf("55600%05d", i)}
	}
	return recs
}

func TestChunks_Sizes(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{1201, 500, []int{500, 500, 201}},
		{1000, 500, []int{500, 500}},
		{3, 500, []int{3}},
		{0, 500, nil},
		{5, 1, []int{1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.n, tt.size), func(t *testing.T) {
			recs := makeRecords(tt.n)
			var sizes []int
			seen := make(map[string]int)
			next := 0
			for b := range Chunks(recs, tt.size) {
				sizes = append(sizes, len(b.Records))
				if b.Total != len(tt.want) {
					t.Errorf("batch %d: Total = %d, want %d", b.Number, b.Total, len(tt.want))
				}
				if b.Offset != next {
					t.Errorf("batch %d: Offset = %d, want %d", b.Number, b.Offset, next)
				}
				if len(b.Records) < 1 || len(b.Records) > tt.size {
					t.Errorf("batch %d: size %d out of bounds", b.Number, len(b.Records))
				}
				for i, r := range b.Records {
					if r != recs[next+i] {
						t.Fatalf("batch %d: record %d out of order", b.Number, i)
					}
					seen[r.OrganisationsIdentitet]++
				}
				next += len(b.Records)
			}
			if fmt.Sprint(sizes) != fmt.Sprint(tt.want) {
				t.Errorf("sizes = %v, want %v", sizes, tt.want)
			}
			if len(seen) != tt.n || next != tt.n {
				t.Errorf("covered %d records (%d distinct), want %d", next, len(seen), tt.n)
			}
			for k, c := range seen {
				if c != 1 {
					t.Errorf("record %s yielded %d times", k, c)
				}
			}
			if got := Count(tt.n, tt.size); got != len(tt.want) {
				t.Errorf("Count = %d, want %d", got, len(tt.want))
			}
		})
	}
}

func TestChunks_Restartable(t *testing.T) {
	seq := Chunks(makeRecords(7), 3)
	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	if a, b := count(), count(); a != 3 || b != 3 {
		t.Errorf("expected 3 batches on each pass, got %d and %d", a, b)
	}
}

func TestChunks_StopEarly(t *testing.T) {
	n := 0
	for b := range Chunks(makeRecords(10), 2) {
		n++
		if b.Number == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("expected to stop after 2 batches, got %d", n)
	}
}

func TestChunks_InvalidSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for chunk size 0")
		}
	}()
	Chunks(makeRecords(1), 0)
}

func TestDedupe(t *testing.T) {
	a1 := &model.OrganizationRecord{OrganisationsIdentitet: "a"}
	b := &model.OrganizationRecord{OrganisationsIdentitet: "b"}
	a2 := &model.OrganizationRecord{OrganisationsIdentitet: "a"}
	in := model.LoadBatch{Number: 1, Total: 1, Records: []*model.OrganizationRecord{a1, b, a2}}

	out, dropped := Dedupe(in)
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(out.Records) != 2 || out.Records[0] != a2 || out.Records[1] != b {
		t.Errorf("unexpected records after dedupe: %+v", out.Records)
	}
	if len(in.Records) != 3 || in.Records[0] != a1 {
		t.Error("input batch was modified")
	}
}
