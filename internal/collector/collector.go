// Package collector builds and summarizes batch sync results.
package collector

import (
	"slices"

	"github.com/dtroode/dirsync/internal/model"
)

// NewBatchResult returns an empty result with initialized categories.
func NewBatchResult() *model.BatchResult {
	return &model.BatchResult{
		Success: make(map[string]*model.UserRecord),
		Failed:  make([]string, 0),
		Skipped: make([]string, 0),
		Errors:  make(map[string]string),
	}
}

// AddSuccess records a synced user. The id leaves any other category.
func AddSuccess(result *model.BatchResult, id string, record *model.UserRecord) {
	remove(result, id)
	result.Success[id] = record
}

// AddFailed records a failed user with an optional reason.
func AddFailed(result *model.BatchResult, id string, reason string) {
	remove(result, id)
	result.Failed = append(result.Failed, id)
	if reason != "" {
		result.Errors[id] = reason
	}
}

// AddSkipped records a user that did not need a sync.
func AddSkipped(result *model.BatchResult, id string) {
	remove(result, id)
	result.Skipped = append(result.Skipped, id)
}

func remove(result *model.BatchResult, id string) {
	delete(result.Success, id)
	delete(result.Errors, id)
	result.Failed = slices.DeleteFunc(result.Failed, func(s string) bool { return s == id })
	result.Skipped = slices.DeleteFunc(result.Skipped, func(s string) bool { return s == id })
}

// Merge moves every outcome of src into dst. Outcomes in src win.
func Merge(dst, src *model.BatchResult) {
	if src == nil {
		return
	}
	for id, record := range src.Success {
		AddSuccess(dst, id, record)
	}
	for _, id := range src.Failed {
		AddFailed(dst, id, src.Errors[id])
	}
	for _, id := range src.Skipped {
		AddSkipped(dst, id)
	}
}

// Summary computes aggregate statistics. SuccessRate is in [0, 1] and is 0
// for an empty result.
func Summary(result *model.BatchResult) model.BatchSummary {
	if result == nil {
		return model.BatchSummary{}
	}

	summary := model.BatchSummary{
		Succeeded: len(result.Success),
		Failed:    len(result.Failed),
		Skipped:   len(result.Skipped),
	}
	summary.Total = summary.Succeeded + summary.Failed + summary.Skipped
	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Total)
	}
	return summary
}

// Chunk splits ids into consecutive chunks of at most size elements.
// A non-positive size falls back to model.DefaultChunkSize.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = model.DefaultChunkSize
	}
	if len(ids) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for chunk := range slices.Chunk(ids, size) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Dedupe drops repeated ids, keeping the first occurrence.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
