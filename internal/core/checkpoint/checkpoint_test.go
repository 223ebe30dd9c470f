package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
)

func TestCheckpoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cp      Checkpoint
		wantErr error
	}{
		{name: "valid", cp: Checkpoint{ID: "cp-1", FlowID: "flow-1"}},
		{name: "missing id", cp: Checkpoint{FlowID: "flow-1"}, wantErr: ErrInvalidCheckpointID},
		{name: "missing flow", cp: Checkpoint{ID: "cp-1"}, wantErr: ErrInvalidFlowID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cp.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckpoint_Summary(t *testing.T) {
	cp := &Checkpoint{
		ID:       "cp-1",
		FlowID:   "flow-1",
		Snapshot: graph.Snapshot{Nodes: []graph.Node{{ID: "1"}}},
		Metadata: Metadata{NodeCount: 1, Tags: []string{"draft"}},
	}
	sum := cp.Summary()
	assert.Nil(t, sum.Snapshot.Nodes)
	assert.Equal(t, 1, sum.Metadata.NodeCount)

	sum.Metadata.Tags[0] = "changed"
	assert.Equal(t, "draft", cp.Metadata.Tags[0])
	assert.Len(t, cp.Snapshot.Nodes, 1)
}

func TestFilter_Validate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	assert.NoError(t, (&Filter{}).Validate())
	assert.ErrorIs(t, (&Filter{Limit: -1}).Validate(), ErrInvalidLimit)
	assert.ErrorIs(t, (&Filter{Offset: -1}).Validate(), ErrInvalidOffset)
	assert.ErrorIs(t, (&Filter{Since: &now, Before: &earlier}).Validate(), ErrInvalidTimeRange)
}

func TestFilter_Matches(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	before := ts.Add(time.Minute)
	since := ts.Add(-time.Minute)
	late := ts.Add(time.Hour)

	cp := &Checkpoint{
		ID:        "cp",
		FlowID:    "flow-1",
		SessionID: "s-1",
		Timestamp: ts,
		Metadata:  Metadata{Tags: []string{"draft", "ai"}},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty filter", filter: Filter{}, want: true},
		{name: "flow match", filter: Filter{FlowID: "flow-1"}, want: true},
		{name: "flow mismatch", filter: Filter{FlowID: "flow-2"}, want: false},
		{name: "session mismatch", filter: Filter{SessionID: "s-2"}, want: false},
		{name: "in range", filter: Filter{Since: &since, Before: &before}, want: true},
		{name: "too early", filter: Filter{Since: &late}, want: false},
		{name: "all tags", filter: Filter{Tags: []string{"ai", "draft"}}, want: true},
		{name: "missing tag", filter: Filter{Tags: []string{"final"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(cp))
		})
	}
}

func TestFilter_Page(t *testing.T) {
	cps := []*Checkpoint{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	ids := func(in []*Checkpoint) []string {
		out := make([]string, 0, len(in))
		for _, cp := range in {
			out = append(out, cp.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids((&Filter{}).Page(cps)))
	assert.Equal(t, []string{"a", "b"}, ids((&Filter{Limit: 2}).Page(cps)))
	assert.Equal(t, []string{"b", "c"}, ids((&Filter{Offset: 1}).Page(cps)))
	assert.Equal(t, []string{"b"}, ids((&Filter{Offset: 1, Limit: 1}).Page(cps)))
	assert.Empty(t, (&Filter{Offset: 5}).Page(cps))
}
