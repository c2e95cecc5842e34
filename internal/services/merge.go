package services

import "requirement-analyzer/internal/models"

// MergeByID merges incoming into existing by id. Items already present are
// replaced in place by the incoming version and new items are appended in
// the order they arrive. Merging the same list twice yields the same result.
func MergeByID[T models.Entity](existing, incoming []T) []T {
	merged := make([]T, 0, len(existing)+len(incoming))
	index := make(map[int64]int, len(existing)+len(incoming))

	for _, item := range existing {
		if i, ok := index[item.EntityID()]; ok {
			merged[i] = item
			continue
		}
		index[item.EntityID()] = len(merged)
		merged = append(merged, item)
	}

	for _, item := range incoming {
		if i, ok := index[item.EntityID()]; ok {
			merged[i] = item
			continue
		}
		index[item.EntityID()] = len(merged)
		merged = append(merged, item)
	}

	return merged
}

// keepNewest trims items to the last limit entries
func keepNewest[T any](items []T, limit int) []T {
	if len(items) <= limit {
		return items
	}
	return append([]T(nil), items[len(items)-limit:]...)
}
