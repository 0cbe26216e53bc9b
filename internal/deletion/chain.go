// Package deletion 构建批量删除用的级联选择链。四级联动：
// 产品 → 批号 → 工段 → 状态，上级变更时自动校正或清空下级选择。
package deletion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xieshentoken/miniMES/internal/entity"
)

// SegmentEntry 批号在某一工段的一条记录
type SegmentEntry struct {
	ID       int64
	Segment  string
	Status   string
	IsLatest bool
}

// ProductMap 产品名 → 批号 → 工段条目
type ProductMap map[string]map[string][]SegmentEntry

// Build 从批号视图构建级联映射。产品、批号、工段或 id 缺失的条目
// 直接跳过，脏数据不允许污染选择链。
func Build(views []entity.BatchView) ProductMap {
	products := make(ProductMap)
	for _, view := range views {
		if view.ID == 0 || view.ProductName == "" || view.BatchNumber == "" || view.ProcessSegment == "" {
			continue
		}
		batches, ok := products[view.ProductName]
		if !ok {
			batches = make(map[string][]SegmentEntry)
			products[view.ProductName] = batches
		}
		batches[view.BatchNumber] = append(batches[view.BatchNumber], SegmentEntry{
			ID:       view.ID,
			Segment:  view.ProcessSegment,
			Status:   view.Status,
			IsLatest: view.IsLatestSegment,
		})
	}
	return products
}

// SegmentOption 工段选项，带状态与"当前工段"标注
type SegmentOption struct {
	Segment  string
	Status   string
	IsLatest bool
}

// Label 下拉展示文案
func (o SegmentOption) Label() string {
	var b strings.Builder
	b.WriteString(o.Segment)
	if o.Status != "" {
		fmt.Fprintf(&b, "（%s）", o.Status)
	}
	if o.IsLatest {
		b.WriteString("（当前）")
	}
	return b.String()
}

// Selection 四级选择的最终结果，作为批量删除请求的键
type Selection struct {
	ProductName    string `json:"product_name"`
	BatchNumber    string `json:"batch_number"`
	ProcessSegment string `json:"process_segment"`
	Status         string `json:"status"`
}

// Chain 级联选择器的状态机
type Chain struct {
	products ProductMap

	product     string
	batchNumber string
	segment     string
	status      string
}

// NewChain 从批号视图创建选择链
func NewChain(views []entity.BatchView) *Chain {
	return &Chain{products: Build(views)}
}

// Rebuild 数据刷新后重建映射并校正已有选择
func (c *Chain) Rebuild(views []entity.BatchView) {
	c.products = Build(views)
	c.revalidate()
}

// Products 产品选项，字母序
func (c *Chain) Products() []string {
	names := make([]string, 0, len(c.products))
	for name := range c.products {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BatchNumbers 当前产品下的批号选项，字母序
func (c *Chain) BatchNumbers() []string {
	batches, ok := c.products[c.product]
	if !ok {
		return nil
	}
	numbers := make([]string, 0, len(batches))
	for number := range batches {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)
	return numbers
}

// Segments 当前批号下的工段选项，按工段名字母序
func (c *Chain) Segments() []SegmentOption {
	entries := c.products[c.product][c.batchNumber]
	options := make([]SegmentOption, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if seen[entry.Segment] {
			continue
		}
		seen[entry.Segment] = true
		options = append(options, SegmentOption{
			Segment:  entry.Segment,
			Status:   entry.Status,
			IsLatest: entry.IsLatest,
		})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Segment < options[j].Segment })
	return options
}

// Statuses 当前 (产品, 批号, 工段) 三元组下去重后的状态选项
func (c *Chain) Statuses() []string {
	entries := c.products[c.product][c.batchNumber]
	seen := make(map[string]bool)
	statuses := make([]string, 0, 2)
	for _, entry := range entries {
		if entry.Segment != c.segment || entry.Status == "" || seen[entry.Status] {
			continue
		}
		seen[entry.Status] = true
		statuses = append(statuses, entry.Status)
	}
	sort.Strings(statuses)
	return statuses
}

// SelectProduct 选择产品并级联校正下级
func (c *Chain) SelectProduct(product string) {
	c.product = product
	c.revalidate()
}

// SelectBatch 选择批号并级联校正下级
func (c *Chain) SelectBatch(batchNumber string) {
	c.batchNumber = batchNumber
	c.revalidate()
}

// SelectSegment 选择工段。该工段只有唯一状态时自动选中
func (c *Chain) SelectSegment(segment string) {
	c.segment = segment
	c.revalidate()
}

// SelectStatus 选择状态
func (c *Chain) SelectStatus(status string) {
	c.status = status
	c.revalidate()
}

// revalidate 自上而下校验选择，不再成立的下级选择清空，
// 工段确定且状态唯一时自动选中该状态。
func (c *Chain) revalidate() {
	if _, ok := c.products[c.product]; !ok {
		c.product, c.batchNumber, c.segment, c.status = "", "", "", ""
		return
	}
	if _, ok := c.products[c.product][c.batchNumber]; !ok {
		c.batchNumber, c.segment, c.status = "", "", ""
		return
	}
	if c.segment != "" && !c.hasSegment(c.segment) {
		c.segment, c.status = "", ""
	}
	if c.segment == "" {
		c.status = ""
		return
	}
	statuses := c.Statuses()
	switch {
	case len(statuses) == 1:
		c.status = statuses[0]
	case c.status != "" && !contains(statuses, c.status):
		c.status = ""
	}
}

func (c *Chain) hasSegment(segment string) bool {
	for _, entry := range c.products[c.product][c.batchNumber] {
		if entry.Segment == segment {
			return true
		}
	}
	return false
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// Ready 四级全部选定后才允许提交删除
func (c *Chain) Ready() bool {
	return c.product != "" && c.batchNumber != "" && c.segment != "" && c.status != ""
}

// Selection 当前选择。未就绪时返回 false
func (c *Chain) Selection() (Selection, bool) {
	if !c.Ready() {
		return Selection{}, false
	}
	return Selection{
		ProductName:    c.product,
		BatchNumber:    c.batchNumber,
		ProcessSegment: c.segment,
		Status:         c.status,
	}, true
}

// Reset 清空全部选择
func (c *Chain) Reset() {
	c.product, c.batchNumber, c.segment, c.status = "", "", "", ""
}
