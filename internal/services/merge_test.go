package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"requirement-analyzer/internal/models"
)

func TestMergeByIDLastFetchedWins(t *testing.T) {
	existing := []models.Epic{{ID: 1, Name: "old"}, {ID: 2, Name: "two"}}
	incoming := []models.Epic{{ID: 3, Name: "three"}, {ID: 1, Name: "new"}}

	merged := MergeByID(existing, incoming)

	assert.Equal(t, []models.Epic{{ID: 1, Name: "new"}, {ID: 2, Name: "two"}, {ID: 3, Name: "three"}}, merged)
	assert.Equal(t, "old", existing[0].Name)
}

func TestMergeByIDIsIdempotent(t *testing.T) {
	existing := []models.Story{{ID: 10}, {ID: 11}}
	incoming := []models.Story{{ID: 11, Name: "updated"}, {ID: 12}}

	once := MergeByID(existing, incoming)
	twice := MergeByID(once, incoming)

	assert.Equal(t, once, twice)
	assert.Len(t, twice, 3)
}

func TestMergeByIDCollapsesDuplicates(t *testing.T) {
	merged := MergeByID([]models.QATest{{ID: 1}, {ID: 1, TestType: models.TestAPI}}, nil)

	assert.Equal(t, []models.QATest{{ID: 1, TestType: models.TestAPI}}, merged)
}

func TestKeepNewest(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{4, 5}, keepNewest(items, 2))
	assert.Equal(t, items, keepNewest(items, 10))
}
