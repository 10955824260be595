package db

import (
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/bolagsload/internal/model"
)

// ChannelSource implements pgx.CopyFromSource by reading records from a channel.
// This provides natural backpressure between the input reader and COPY writer.
type ChannelSource struct {
	ch      <-chan *model.OrganizationRecord
	current *model.OrganizationRecord
	copied  int64
}

// NewChannelSource creates a CopyFromSource backed by a channel.
func NewChannelSource(ch <-chan *model.OrganizationRecord) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Next advances to the next record. Returns false when the channel is closed.
func (s *ChannelSource) Next() bool {
	rec, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = rec
	s.copied++
	return true
}

// Values returns the current record's values in COPY column order.
func (s *ChannelSource) Values() ([]any, error) {
	return s.current.CopyValues(), nil
}

// Err is always nil; producer failures cancel the COPY through its context.
func (s *ChannelSource) Err() error {
	return nil
}

// Seen returns how many records have been handed to COPY so far.
func (s *ChannelSource) Seen() int64 {
	return s.copied
}

// Compile-time check that ChannelSource satisfies the interface.
var _ pgx.CopyFromSource = (*ChannelSource)(nil)
