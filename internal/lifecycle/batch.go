package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xieshentoken/miniMES/internal/api"
	"github.com/xieshentoken/miniMES/internal/deletion"
	"github.com/xieshentoken/miniMES/internal/entity"
	"github.com/xieshentoken/miniMES/internal/permission"
)

// =============================================================================
// 批号级操作
// =============================================================================

// CreateBatch 新建批号
// 批号与已有批号重名时需确认，工段是重名批号的区分键。
func (s *Service) CreateBatch(ctx context.Context, req api.CreateBatchRequest, confirmed bool) (entity.Batch, error) {
	if !s.perms.CreateBatch {
		return entity.Batch{}, permission.Denied(s.role, "新建批号")
	}
	if !confirmed && s.index.HasBatchNumber(req.BatchNumber) {
		return entity.Batch{}, &DuplicateNumberError{BatchNumber: req.BatchNumber}
	}
	if err := s.gate.Acquire("batch_submit"); err != nil {
		return entity.Batch{}, err
	}
	defer s.gate.Release("batch_submit")

	return s.client.CreateBatch(ctx, req)
}

// UpdateBatchStatus 更新当前批号的状态
// 新值与现值相同时是幂等空操作，不发请求；不同时必须confirmed。
func (s *Service) UpdateBatchStatus(ctx context.Context, status string, confirmed bool) (entity.BatchView, error) {
	if !s.perms.ManageBatchStatus {
		return entity.BatchView{}, permission.Denied(s.role, "修改批号状态")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return entity.BatchView{}, err
	}
	if status == current.Status {
		return current, nil
	}
	if !confirmed {
		return entity.BatchView{}, ErrConfirmationRequired
	}
	if err := s.gate.Acquire("batch_status"); err != nil {
		return entity.BatchView{}, err
	}
	defer s.gate.Release("batch_status")

	updated, err := s.client.UpdateBatchStatus(ctx, current.ID, status)
	if err != nil {
		return entity.BatchView{}, err
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == updated.ID {
		s.current.Status = updated.Status
		current = *s.current
	}
	s.mu.Unlock()
	s.logger.Info("批号状态已更新",
		zap.Int64("batch_id", updated.ID), zap.String("status", updated.Status))
	return current, nil
}

// UpdateBatchSegment 更新当前批号的工段
// 语义与状态变更相同：同值空操作，异值需确认。
func (s *Service) UpdateBatchSegment(ctx context.Context, segment string, confirmed bool) (entity.BatchView, error) {
	if !s.perms.ManageBatchSegment {
		return entity.BatchView{}, permission.Denied(s.role, "修改批号工段")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return entity.BatchView{}, err
	}
	if segment == current.ProcessSegment {
		return current, nil
	}
	if !confirmed {
		return entity.BatchView{}, ErrConfirmationRequired
	}
	if err := s.gate.Acquire("batch_segment"); err != nil {
		return entity.BatchView{}, err
	}
	defer s.gate.Release("batch_segment")

	updated, err := s.client.UpdateBatchSegment(ctx, current.ID, segment)
	if err != nil {
		return entity.BatchView{}, err
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == updated.ID {
		s.current.ProcessSegment = updated.ProcessSegment
		current = *s.current
	}
	s.mu.Unlock()
	s.logger.Info("批号工段已更新",
		zap.Int64("batch_id", updated.ID), zap.String("segment", updated.ProcessSegment))
	return current, nil
}

// DuplicateBatch 以当前批号为模板复制新批号
// 目标批号与已有批号重名是允许的（工段可区分），但未确认时先报重名错误。
func (s *Service) DuplicateBatch(ctx context.Context, req api.DuplicateBatchRequest, confirmed bool) (entity.Batch, error) {
	if !s.perms.DuplicateBatch {
		return entity.Batch{}, permission.Denied(s.role, "复制批号")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return entity.Batch{}, err
	}
	if !confirmed && s.index.HasBatchNumber(req.BatchNumber) {
		return entity.Batch{}, &DuplicateNumberError{BatchNumber: req.BatchNumber}
	}
	if err := s.gate.Acquire("batch_duplicate"); err != nil {
		return entity.Batch{}, err
	}
	defer s.gate.Release("batch_duplicate")

	created, err := s.client.DuplicateBatch(ctx, current.ID, req)
	if err != nil {
		return entity.Batch{}, err
	}
	s.logger.Info("批号已复制",
		zap.Int64("source_id", current.ID),
		zap.Int64("new_id", created.ID),
		zap.Bool("copy_records", req.CopyRecords))
	return created, nil
}

// DeleteBatch 删除单个批号行。破坏性操作，仅限管理员
func (s *Service) DeleteBatch(ctx context.Context, batchID int64) error {
	if !permission.CanBulkDelete(s.role) {
		return permission.Denied(s.role, "删除批号")
	}
	if _, ok := s.index.FindByID(batchID); !ok {
		return &NotFoundError{Kind: "批号", ID: batchID}
	}
	if err := s.gate.Acquire("batch_delete"); err != nil {
		return err
	}
	defer s.gate.Release("batch_delete")

	if err := s.client.DeleteBatch(ctx, batchID); err != nil {
		return err
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == batchID {
		s.current = nil
		s.materials, s.equipment, s.quality = nil, nil, nil
	}
	s.mu.Unlock()
	return nil
}

// BulkDelete 按四级选择批量删除
// 同名批号可能命中多行，文案用服务端返回的实际条数。
func (s *Service) BulkDelete(ctx context.Context, selection deletion.Selection) (int, string, error) {
	if !permission.CanBulkDelete(s.role) {
		return 0, "", permission.Denied(s.role, "批量删除批号")
	}
	if err := s.gate.Acquire("batch_delete"); err != nil {
		return 0, "", err
	}
	defer s.gate.Release("batch_delete")

	deleted, err := s.client.BulkDeleteBatches(ctx, selection)
	if err != nil {
		return 0, "", err
	}
	s.logger.Info("批量删除完成",
		zap.String("product", selection.ProductName),
		zap.String("batch_number", selection.BatchNumber),
		zap.String("segment", selection.ProcessSegment),
		zap.String("status", selection.Status),
		zap.Int("deleted", deleted))
	return deleted, fmt.Sprintf("共删除%d条批号记录", deleted), nil
}

// DeletionChain 用当前索引构建级联删除选择链
func (s *Service) DeletionChain() *deletion.Chain {
	return deletion.NewChain(s.index.Views())
}
