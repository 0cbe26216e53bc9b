package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xieshentoken/miniMES/internal/deletion"
	"github.com/xieshentoken/miniMES/internal/entity"
)

// =============================================================================
// 批号相关接口
// =============================================================================

// Batches 拉取批号列表（服务端按批号聚合，可能携带工段汇总）
func (c *Client) Batches(ctx context.Context) ([]entity.Batch, error) {
	var batches []entity.Batch
	if err := c.doRequest(ctx, http.MethodGet, "/api/batches", nil, &batches); err != nil {
		return nil, fmt.Errorf("获取批号列表失败: %w", err)
	}
	return batches, nil
}

// BatchDetail 拉取单个批号的详情（含工段列表与记录汇总）
func (c *Client) BatchDetail(ctx context.Context, batchID int64) (entity.BatchDetail, error) {
	var detail entity.BatchDetail
	path := fmt.Sprintf("/api/batches/%d", batchID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return entity.BatchDetail{}, fmt.Errorf("获取批号详情失败: %w", err)
	}
	return detail, nil
}

// CreateBatchRequest 新建批号的请求体
type CreateBatchRequest struct {
	BatchNumber    string `json:"batch_number"`
	ProductName    string `json:"product_name"`
	ProcessSegment string `json:"process_segment"`
}

// CreateBatch 新建批号
func (c *Client) CreateBatch(ctx context.Context, req CreateBatchRequest) (entity.Batch, error) {
	var created entity.Batch
	if err := c.doRequest(ctx, http.MethodPost, "/api/batches", req, &created); err != nil {
		return entity.Batch{}, fmt.Errorf("新建批号失败: %w", err)
	}
	return created, nil
}

// UpdateBatchStatus 更新批号状态
func (c *Client) UpdateBatchStatus(ctx context.Context, batchID int64, status string) (entity.Batch, error) {
	var updated entity.Batch
	path := fmt.Sprintf("/api/batches/%d", batchID)
	body := map[string]string{"status": status}
	if err := c.doRequest(ctx, http.MethodPut, path, body, &updated); err != nil {
		return entity.Batch{}, fmt.Errorf("更新批号状态失败: %w", err)
	}
	return updated, nil
}

// UpdateBatchSegment 更新批号工段
func (c *Client) UpdateBatchSegment(ctx context.Context, batchID int64, segment string) (entity.Batch, error) {
	var updated entity.Batch
	path := fmt.Sprintf("/api/batches/%d", batchID)
	body := map[string]string{"process_segment": segment}
	if err := c.doRequest(ctx, http.MethodPut, path, body, &updated); err != nil {
		return entity.Batch{}, fmt.Errorf("更新批号工段失败: %w", err)
	}
	return updated, nil
}

// DeleteBatch 删除单个批号行
func (c *Client) DeleteBatch(ctx context.Context, batchID int64) error {
	path := fmt.Sprintf("/api/batches/%d", batchID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("删除批号失败: %w", err)
	}
	return nil
}

// BulkDeleteBatches 按 (产品, 批号, 工段, 状态) 批量删除
// 同名批号可能命中多行，返回服务端实际删除的条数。
func (c *Client) BulkDeleteBatches(ctx context.Context, selection deletion.Selection) (int, error) {
	var result struct {
		Deleted int `json:"deleted"`
	}
	if err := c.doRequest(ctx, http.MethodDelete, "/api/batches/delete", selection, &result); err != nil {
		return 0, fmt.Errorf("批量删除批号失败: %w", err)
	}
	return result.Deleted, nil
}

// DuplicateBatchRequest 复制批号的请求体
type DuplicateBatchRequest struct {
	BatchNumber    string `json:"batch_number"`
	ProductName    string `json:"product_name"`
	ProcessSegment string `json:"process_segment"`
	CopyRecords    bool   `json:"copy_records"`
}

// DuplicateBatch 以已有批号为模板复制一条新批号，可选带记录
func (c *Client) DuplicateBatch(ctx context.Context, batchID int64, req DuplicateBatchRequest) (entity.Batch, error) {
	var created entity.Batch
	path := fmt.Sprintf("/api/batches/%d/duplicate", batchID)
	if err := c.doRequest(ctx, http.MethodPost, path, req, &created); err != nil {
		return entity.Batch{}, fmt.Errorf("复制批号失败: %w", err)
	}
	return created, nil
}
