package consolidate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/paperflow/internal/metrics"
	"github.com/raphaelgruber/paperflow/internal/models"
)

func TestService_FindSimilar(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{
		{ID: 1, Name: "invoice", DocumentCount: 10},
		{ID: 2, Name: "invoices", DocumentCount: 2},
		{ID: 3, Name: "receipt", DocumentCount: 5},
	}

	svc := NewService(store, Options{})
	groups, err := svc.FindSimilar(context.Background(), models.KindTag, 0.8, false)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, []int{1, 2}, groups[0].IDs())

	stats := svc.Stats()
	assert.Greater(t, stats.Comparisons, uint64(0))
	require.NotNil(t, stats.ElapsedSeconds, "run finished, elapsed must be set")
	assert.GreaterOrEqual(t, *stats.ElapsedSeconds, 0.0)
}

func TestService_FindSimilar_EmptyStore(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, Options{})

	groups, err := svc.FindSimilar(context.Background(), models.KindCorrespondent, 0.8, false)
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.Equal(t, 1, store.listEntityCalls, "only the initial listing happens")
	assert.Empty(t, store.updateCalls)
}

func TestService_FindSimilar_InvalidKind(t *testing.T) {
	svc := NewService(newFakeStore(), Options{})
	_, err := svc.FindSimilar(context.Background(), models.EntityKind("folder"), 0.8, false)
	assert.Error(t, err)
}

func TestService_FindSimilar_InvalidThreshold(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	svc := NewService(store, Options{})

	_, err := svc.FindSimilar(context.Background(), models.KindTag, 1.1, false)
	assert.ErrorIs(t, err, models.ErrInvalidThreshold)
}

func TestService_PlanAndMerge(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{
		{ID: 1, Name: "invoice", DocumentCount: 10},
		{ID: 2, Name: "invoices", DocumentCount: 2},
		{ID: 3, Name: "receipt", DocumentCount: 5},
	}
	store.docs[100] = []int{2, 3}

	svc := NewService(store, Options{})
	report := svc.PlanAndMerge(context.Background(), models.KindTag, 0.8, false)

	assert.Equal(t, 1, report.MergeCount)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []int{3, 1}, store.docs[100], "retired tag replaced by the primary")
	assert.Equal(t, []int{2}, store.deleted)
	assert.Greater(t, report.Stats.Comparisons, uint64(0))
}

func TestService_PlanAndMerge_ListErrorReported(t *testing.T) {
	store := newFakeStore()
	store.listEntitiesErr = errors.New("connection refused")

	report := NewService(store, Options{}).PlanAndMerge(context.Background(), models.KindTag, 0.8, false)

	assert.Equal(t, 0, report.MergeCount)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "connection refused")
}

func TestService_CollectorTimings(t *testing.T) {
	store := newFakeStore()
	store.entities[models.KindTag] = []models.NamedEntity{
		{ID: 1, Name: "invoice"}, {ID: 2, Name: "invoices"},
	}
	collector := metrics.NewCollector()

	svc := NewService(store, Options{Collector: collector})
	_, err := svc.FindSimilar(context.Background(), models.KindTag, 0.8, false)
	require.NoError(t, err)

	snap := collector.Snapshot()
	require.NotNil(t, snap.StoreList)
	assert.Equal(t, int64(1), snap.StoreList.Count)
	require.NotNil(t, snap.Grouping)
	assert.Equal(t, int64(1), snap.Grouping.Count)
}
