package deletion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xieshentoken/miniMES/internal/entity"
)

func sampleViews() []entity.BatchView {
	return []entity.BatchView{
		{Batch: entity.Batch{ID: 1, ProductName: "外壳A", BatchNumber: "B-100", ProcessSegment: "混合", Status: "进行中"}},
		{Batch: entity.Batch{ID: 2, ProductName: "外壳A", BatchNumber: "B-100", ProcessSegment: "成型", Status: "已完成"}, IsLatestSegment: true},
		{Batch: entity.Batch{ID: 3, ProductName: "外壳A", BatchNumber: "B-200", ProcessSegment: "混合", Status: "进行中"}},
		{Batch: entity.Batch{ID: 4, ProductName: "外壳B", BatchNumber: "C-100", ProcessSegment: "包装", Status: "暂停"}},
	}
}

func TestBuildSkipsMalformed(t *testing.T) {
	views := append(sampleViews(),
		entity.BatchView{Batch: entity.Batch{ID: 0, ProductName: "外壳A", BatchNumber: "B-300", ProcessSegment: "混合"}},
		entity.BatchView{Batch: entity.Batch{ID: 9, ProductName: "", BatchNumber: "B-300", ProcessSegment: "混合"}},
		entity.BatchView{Batch: entity.Batch{ID: 10, ProductName: "外壳A", BatchNumber: "", ProcessSegment: "混合"}},
		entity.BatchView{Batch: entity.Batch{ID: 11, ProductName: "外壳A", BatchNumber: "B-300", ProcessSegment: ""}},
	)
	products := Build(views)
	require.Len(t, products, 2)
	assert.NotContains(t, products["外壳A"], "B-300", "脏数据不进选择链")
}

func TestDuplicateNumberGroupsBothSegments(t *testing.T) {
	products := Build(sampleViews())
	entries := products["外壳A"]["B-100"]
	require.Len(t, entries, 2)
	segments := []string{entries[0].Segment, entries[1].Segment}
	assert.ElementsMatch(t, []string{"混合", "成型"}, segments)
}

func TestCascadeOptions(t *testing.T) {
	chain := NewChain(sampleViews())
	assert.Equal(t, []string{"外壳A", "外壳B"}, chain.Products())

	chain.SelectProduct("外壳A")
	assert.Equal(t, []string{"B-100", "B-200"}, chain.BatchNumbers())

	chain.SelectBatch("B-100")
	options := chain.Segments()
	require.Len(t, options, 2)
	// 工段按字母序
	assert.Equal(t, "成型", options[0].Segment)
	assert.Equal(t, "混合", options[1].Segment)
	assert.Contains(t, options[0].Label(), "已完成")
	assert.Contains(t, options[0].Label(), "当前")
	assert.NotContains(t, options[1].Label(), "当前")
}

func TestSingleStatusAutoSelected(t *testing.T) {
	chain := NewChain(sampleViews())
	chain.SelectProduct("外壳A")
	chain.SelectBatch("B-100")
	chain.SelectSegment("成型")

	selection, ok := chain.Selection()
	require.True(t, ok, "唯一状态应自动选中，四级就绪")
	assert.Equal(t, "已完成", selection.Status)
}

func TestUpstreamChangeClearsDownstream(t *testing.T) {
	chain := NewChain(sampleViews())
	chain.SelectProduct("外壳A")
	chain.SelectBatch("B-100")
	chain.SelectSegment("成型")
	require.True(t, chain.Ready())

	// 换产品后批号不再成立，下游全部清空
	chain.SelectProduct("外壳B")
	assert.False(t, chain.Ready())
	assert.Equal(t, []string{"C-100"}, chain.BatchNumbers())
	assert.Empty(t, chain.Segments())
}

func TestStatusesDistinctPerTriple(t *testing.T) {
	views := append(sampleViews(),
		entity.BatchView{Batch: entity.Batch{ID: 5, ProductName: "外壳A", BatchNumber: "B-100", ProcessSegment: "混合", Status: "进行中"}},
		entity.BatchView{Batch: entity.Batch{ID: 6, ProductName: "外壳A", BatchNumber: "B-100", ProcessSegment: "混合", Status: "暂停"}},
	)
	chain := NewChain(views)
	chain.SelectProduct("外壳A")
	chain.SelectBatch("B-100")
	chain.SelectSegment("混合")

	statuses := chain.Statuses()
	assert.Equal(t, []string{"暂停", "进行中"}, statuses, "去重且只含该三元组的状态")

	// 多个状态时不自动选中
	_, ok := chain.Selection()
	assert.False(t, ok)

	chain.SelectStatus("暂停")
	selection, ok := chain.Selection()
	require.True(t, ok)
	assert.Equal(t, Selection{
		ProductName:    "外壳A",
		BatchNumber:    "B-100",
		ProcessSegment: "混合",
		Status:         "暂停",
	}, selection)
}

func TestRebuildRevalidatesSelection(t *testing.T) {
	chain := NewChain(sampleViews())
	chain.SelectProduct("外壳B")
	chain.SelectBatch("C-100")
	chain.SelectSegment("包装")
	require.True(t, chain.Ready())

	// 数据刷新后该批号消失，选择回退
	chain.Rebuild(sampleViews()[:3])
	assert.False(t, chain.Ready())
}

func TestReset(t *testing.T) {
	chain := NewChain(sampleViews())
	chain.SelectProduct("外壳A")
	chain.Reset()
	assert.False(t, chain.Ready())
	assert.Empty(t, chain.BatchNumbers())
}
