package collector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/dirsync/internal/model"
)

func TestChunk(t *testing.T) {
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
	}

	tests := []struct {
		name     string
		ids      []string
		size     int
		expected []int
	}{
		{name: "250 by 100", ids: ids, size: 100, expected: []int{100, 100, 50}},
		{name: "exact multiple", ids: ids[:200], size: 100, expected: []int{100, 100}},
		{name: "smaller than chunk", ids: ids[:3], size: 100, expected: []int{3}},
		{name: "default size", ids: ids, size: 0, expected: []int{100, 100, 50}},
		{name: "empty", ids: nil, size: 100, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(tt.ids, tt.size)

			var sizes []int
			var flat []string
			for _, c := range chunks {
				sizes = append(sizes, len(c))
				flat = append(flat, c...)
			}
			assert.Equal(t, tt.expected, sizes)
			assert.Equal(t, len(tt.ids), len(flat))
			if len(tt.ids) > 0 {
				assert.Equal(t, tt.ids, flat, "chunks keep input order")
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Dedupe([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, Dedupe(nil))
}

func TestAdd_KeepsPartition(t *testing.T) {
	result := NewBatchResult()

	AddSkipped(result, "a")
	AddFailed(result, "a", "boom")
	AddSuccess(result, "a", &model.UserRecord{Name: "A"})
	AddFailed(result, "b", "upstream gone")
	AddSkipped(result, "c")

	assert.Len(t, result.Success, 1)
	assert.Equal(t, []string{"b"}, result.Failed)
	assert.Equal(t, []string{"c"}, result.Skipped)
	assert.Equal(t, map[string]string{"b": "upstream gone"}, result.Errors)
	assert.Equal(t, 3, Summary(result).Total)
}

func TestMerge(t *testing.T) {
	dst := NewBatchResult()
	AddFailed(dst, "a", "timeout")
	AddSkipped(dst, "b")

	src := NewBatchResult()
	AddSuccess(src, "a", &model.UserRecord{Name: "A"})
	AddFailed(src, "c", "")

	Merge(dst, src)
	Merge(dst, nil)

	require.Contains(t, dst.Success, "a")
	assert.Equal(t, []string{"c"}, dst.Failed)
	assert.Equal(t, []string{"b"}, dst.Skipped)
	assert.Empty(t, dst.Errors)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, model.BatchSummary{}, Summary(NewBatchResult()))
	assert.Equal(t, model.BatchSummary{}, Summary(nil))

	result := NewBatchResult()
	AddSuccess(result, "a", &model.UserRecord{})
	AddSuccess(result, "b", &model.UserRecord{})
	AddFailed(result, "c", "x")
	AddSkipped(result, "d")

	summary := Summary(result)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.InDelta(t, 0.5, summary.SuccessRate, 1e-9)
}
