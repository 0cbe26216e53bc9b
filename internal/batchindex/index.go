// Package batchindex 维护批号列表的本地索引。服务端按 (批号, 产品) 聚合返回，
// 这里展开为逐工段视图并保持确定性排序，供批号选择器与级联删除链使用。
package batchindex

import (
	"sort"
	"strings"

	"github.com/xieshentoken/miniMES/internal/entity"
)

// Filter 批号筛选条件。关键字为大小写不敏感的子串匹配，
// Segment 为空或 "all" 表示全部工序。
type Filter struct {
	ProductKeyword string
	BatchKeyword   string
	Segment        string
}

// Index 展开后的批号视图索引
type Index struct {
	views []entity.BatchView
	byID  map[int64]int
}

// New 创建空索引
func New() *Index {
	return &Index{byID: make(map[int64]int)}
}

// Expand 将聚合批号展开为逐工段视图。携带 segment_summaries 的条目按汇总逐条展开，
// 共享字段（产品、批号、创建人）从聚合条目复制，id/状态/工段/时间/计数取自汇总；
// 没有汇总的条目原样透传。
func Expand(raw []entity.Batch) []entity.BatchView {
	expanded := make([]entity.BatchView, 0, len(raw))
	for _, batch := range raw {
		if len(batch.Summaries) == 0 {
			expanded = append(expanded, entity.BatchView{Batch: batch})
			continue
		}

		for _, summary := range batch.Summaries {
			view := entity.BatchView{Batch: batch}
			view.ID = summary.BatchID
			view.ProcessSegment = summary.ProcessSegment
			view.Status = summary.Status
			view.StartTime = summary.StartTime
			view.EndTime = summary.EndTime
			view.MaterialCount = summary.MaterialCount
			view.EquipmentCount = summary.EquipmentCount
			view.QualityCount = summary.QualityCount
			view.Summaries = nil
			view.LatestBatchID = batch.ID
			view.IsLatestSegment = summary.BatchID == batch.ID
			expanded = append(expanded, view)
		}
	}
	return expanded
}

// Sort 按 (产品名, 批号, 工段) 升序稳定排序，与服务端返回顺序无关
func Sort(views []entity.BatchView) []entity.BatchView {
	sorted := make([]entity.BatchView, len(views))
	copy(sorted, views)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		if a.BatchNumber != b.BatchNumber {
			return a.BatchNumber < b.BatchNumber
		}
		return a.ProcessSegment < b.ProcessSegment
	})
	return sorted
}

// Reload 以原始批号列表重建索引
func (idx *Index) Reload(raw []entity.Batch) {
	idx.views = Sort(Expand(raw))
	idx.byID = make(map[int64]int, len(idx.views))
	for i, view := range idx.views {
		idx.byID[view.ID] = i
	}
}

// Views 当前的全部逐工段视图（已排序）
func (idx *Index) Views() []entity.BatchView {
	return idx.views
}

// Len 视图数量
func (idx *Index) Len() int {
	return len(idx.views)
}

// FindByID 按批号行 id 查找视图
func (idx *Index) FindByID(id int64) (entity.BatchView, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return entity.BatchView{}, false
	}
	return idx.views[i], true
}

// HasBatchNumber 索引中是否已存在同名批号（跨工段）
func (idx *Index) HasBatchNumber(batchNumber string) bool {
	for _, view := range idx.views {
		if view.BatchNumber == batchNumber {
			return true
		}
	}
	return false
}

// Filter 按条件筛选视图。批号关键字同时匹配"批号-工段"组合键；
// 筛选是幂等的，对已筛选结果再次应用同一条件不改变输出。
func (idx *Index) Filter(f Filter) []entity.BatchView {
	return Apply(idx.views, f)
}

// Apply 对任意视图切片应用筛选条件
func Apply(views []entity.BatchView, f Filter) []entity.BatchView {
	productKeyword := strings.ToLower(strings.TrimSpace(f.ProductKeyword))
	batchKeyword := strings.ToLower(strings.TrimSpace(f.BatchKeyword))

	matched := make([]entity.BatchView, 0, len(views))
	for _, view := range views {
		if productKeyword != "" && !strings.Contains(strings.ToLower(view.ProductName), productKeyword) {
			continue
		}
		if batchKeyword != "" {
			number := strings.ToLower(view.BatchNumber)
			composite := strings.ToLower(view.CompositeKey())
			if !strings.Contains(number, batchKeyword) && !strings.Contains(composite, batchKeyword) {
				continue
			}
		}
		if f.Segment != "" && f.Segment != "all" && view.ProcessSegment != f.Segment {
			continue
		}
		matched = append(matched, view)
	}
	return matched
}
