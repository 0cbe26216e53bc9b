package batchindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xieshentoken/miniMES/internal/entity"
)

func aggregatedBatch() entity.Batch {
	return entity.Batch{
		ID:          30,
		BatchNumber: "B-200",
		ProductName: "外壳A",
		CreatedByName: "张工",
		Summaries: []entity.SegmentSummary{
			{BatchID: 10, ProcessSegment: "混合", Status: "已完成", MaterialCount: 3},
			{BatchID: 20, ProcessSegment: "成型", Status: "已完成", EquipmentCount: 2},
			{BatchID: 30, ProcessSegment: "包装", Status: "进行中", QualityCount: 1},
		},
	}
}

func TestExpandSummaries(t *testing.T) {
	views := Expand([]entity.Batch{aggregatedBatch()})
	require.Len(t, views, 3)

	for _, view := range views {
		assert.Equal(t, "B-200", view.BatchNumber)
		assert.Equal(t, "外壳A", view.ProductName)
		assert.Equal(t, "张工", view.CreatedByName)
		assert.Equal(t, int64(30), view.LatestBatchID)
		assert.Nil(t, view.Summaries)
	}

	assert.Equal(t, int64(10), views[0].ID)
	assert.Equal(t, "混合", views[0].ProcessSegment)
	assert.Equal(t, 3, views[0].MaterialCount)
	assert.False(t, views[0].IsLatestSegment)
	assert.False(t, views[1].IsLatestSegment)
	assert.True(t, views[2].IsLatestSegment, "汇总batch_id等于聚合id的行是当前工段")
}

func TestExpandWithoutSummaries(t *testing.T) {
	raw := entity.Batch{ID: 7, BatchNumber: "B-007", ProductName: "外壳B", ProcessSegment: "混合"}
	views := Expand([]entity.Batch{raw})
	require.Len(t, views, 1)
	assert.Equal(t, int64(7), views[0].ID)
	assert.False(t, views[0].IsLatestSegment)
	assert.Zero(t, views[0].LatestBatchID)
}

func TestSortDeterministic(t *testing.T) {
	views := []entity.BatchView{
		{Batch: entity.Batch{ID: 1, ProductName: "外壳B", BatchNumber: "B-100", ProcessSegment: "混合"}},
		{Batch: entity.Batch{ID: 2, ProductName: "外壳A", BatchNumber: "B-200", ProcessSegment: "成型"}},
		{Batch: entity.Batch{ID: 3, ProductName: "外壳A", BatchNumber: "B-100", ProcessSegment: "混合"}},
		{Batch: entity.Batch{ID: 4, ProductName: "外壳A", BatchNumber: "B-100", ProcessSegment: "包装"}},
	}
	sorted := Sort(views)
	var ids []int64
	for _, view := range sorted {
		ids = append(ids, view.ID)
	}
	// (产品, 批号, 工段) 升序
	assert.Equal(t, []int64{4, 3, 2, 1}, ids)

	// 输入顺序无关
	reversed := []entity.BatchView{views[3], views[2], views[1], views[0]}
	sortedAgain := Sort(reversed)
	assert.Equal(t, sorted, sortedAgain)
}

func TestFilterCaseInsensitive(t *testing.T) {
	idx := New()
	idx.Reload([]entity.Batch{
		{ID: 1, BatchNumber: "B-100", ProductName: "Widget-X", ProcessSegment: "混合"},
		{ID: 2, BatchNumber: "B-200", ProductName: "widget-y", ProcessSegment: "成型"},
		{ID: 3, BatchNumber: "C-300", ProductName: "外壳A", ProcessSegment: "混合"},
	})

	matched := idx.Filter(Filter{ProductKeyword: "WIDGET"})
	assert.Len(t, matched, 2)

	matched = idx.Filter(Filter{BatchKeyword: "b-1"})
	require.Len(t, matched, 1)
	assert.Equal(t, "B-100", matched[0].BatchNumber)

	// 组合键 "批号-工段" 也参与匹配
	matched = idx.Filter(Filter{BatchKeyword: "B-100-混合"})
	assert.Len(t, matched, 1)

	matched = idx.Filter(Filter{Segment: "混合"})
	assert.Len(t, matched, 2)

	matched = idx.Filter(Filter{ProductKeyword: "widget", Segment: "成型"})
	require.Len(t, matched, 1)
	assert.Equal(t, int64(2), matched[0].ID)
}

func TestFilterSegmentAll(t *testing.T) {
	idx := New()
	idx.Reload([]entity.Batch{
		{ID: 1, BatchNumber: "B-100", ProductName: "外壳A", ProcessSegment: "混合"},
		{ID: 2, BatchNumber: "B-200", ProductName: "外壳A", ProcessSegment: "成型"},
	})

	// 空串与 "all" 等价，都不过滤工段
	assert.Len(t, idx.Filter(Filter{Segment: ""}), 2)
	assert.Len(t, idx.Filter(Filter{Segment: "all"}), 2)
}

func TestFilterIdempotent(t *testing.T) {
	idx := New()
	idx.Reload([]entity.Batch{
		{ID: 1, BatchNumber: "B-100", ProductName: "外壳A", ProcessSegment: "混合"},
		{ID: 2, BatchNumber: "B-200", ProductName: "外壳A", ProcessSegment: "成型"},
	})
	cond := Filter{ProductKeyword: "外壳"}
	once := idx.Filter(cond)
	twice := Apply(once, cond)
	assert.Equal(t, once, twice)
}

func TestFindByID(t *testing.T) {
	idx := New()
	idx.Reload([]entity.Batch{aggregatedBatch()})

	view, ok := idx.FindByID(20)
	require.True(t, ok)
	assert.Equal(t, "成型", view.ProcessSegment)

	_, ok = idx.FindByID(999)
	assert.False(t, ok)
}

func TestHasBatchNumber(t *testing.T) {
	idx := New()
	idx.Reload([]entity.Batch{aggregatedBatch()})
	assert.True(t, idx.HasBatchNumber("B-200"))
	assert.False(t, idx.HasBatchNumber("B-999"))
}

// 同一批号跨两个工段：展开为2个视图
func TestExpandDuplicateNumberAcrossSegments(t *testing.T) {
	raw := entity.Batch{
		ID:          2,
		BatchNumber: "B-100",
		ProductName: "外壳A",
		Summaries: []entity.SegmentSummary{
			{BatchID: 1, ProcessSegment: "混合", Status: "进行中"},
			{BatchID: 2, ProcessSegment: "成型", Status: "已完成"},
		},
	}
	views := Expand([]entity.Batch{raw})
	require.Len(t, views, 2)
	assert.Equal(t, "B-100-混合", views[0].CompositeKey())
	assert.Equal(t, "B-100-成型", views[1].CompositeKey())
}
