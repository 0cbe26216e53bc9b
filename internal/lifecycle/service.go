// Package lifecycle 记录生命周期服务
// 会话级状态的唯一持有者：当前批号、权限集、批号索引与三类记录缓存。
// 所有改动先过权限检查，慢响应按代次丢弃，防止旧批号的数据覆盖新批号。
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xieshentoken/miniMES/internal/api"
	"github.com/xieshentoken/miniMES/internal/batchindex"
	"github.com/xieshentoken/miniMES/internal/entity"
	"github.com/xieshentoken/miniMES/internal/permission"
	"github.com/xieshentoken/miniMES/internal/schema"
)

// Service 记录生命周期服务
type Service struct {
	client   *api.Client
	registry *schema.Registry
	logger   *zap.Logger
	gate     *Gate

	role  string
	perms permission.Set

	index *batchindex.Index

	mu        sync.Mutex
	current   *entity.BatchView
	materials []entity.MaterialRecord
	equipment []entity.EquipmentRecord
	quality   []entity.QualityRecord

	// 每类记录各自的加载代次，响应携带的代次落后即视为过期
	genMaterial  atomic.Int64
	genEquipment atomic.Int64
	genQuality   atomic.Int64
}

// NewService 创建服务实例。角色字符串来自宿主会话，这里只做解析
func NewService(client *api.Client, registry *schema.Registry, role string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:   client,
		registry: registry,
		logger:   logger,
		gate:     NewGate(),
		role:     permission.Normalize(role),
		perms:    permission.Resolve(role),
		index:    batchindex.New(),
	}
}

// Role 归一化后的角色键
func (s *Service) Role() string { return s.role }

// Permissions 当前角色的权限集
func (s *Service) Permissions() permission.Set { return s.perms }

// Index 批号索引
func (s *Service) Index() *batchindex.Index { return s.index }

// RefreshBatches 拉取批号列表并重建索引
// 当前选中的批号行消失时清除选择。
func (s *Service) RefreshBatches(ctx context.Context) ([]entity.BatchView, error) {
	batches, err := s.client.Batches(ctx)
	if err != nil {
		return nil, err
	}
	s.index.Reload(batches)

	s.mu.Lock()
	if s.current != nil {
		if view, ok := s.index.FindByID(s.current.ID); ok {
			s.current = &view
		} else {
			s.current = nil
		}
	}
	s.mu.Unlock()
	return s.index.Views(), nil
}

// SelectBatch 切换当前批号
// 代次前进使所有在途的记录加载立即失效，缓存清空待重新加载。
func (s *Service) SelectBatch(batchID int64) error {
	view, ok := s.index.FindByID(batchID)
	if !ok {
		return &NotFoundError{Kind: "批号", ID: batchID}
	}

	s.mu.Lock()
	s.current = &view
	s.materials, s.equipment, s.quality = nil, nil, nil
	s.mu.Unlock()

	s.genMaterial.Add(1)
	s.genEquipment.Add(1)
	s.genQuality.Add(1)
	return nil
}

// CurrentBatch 当前选中的批号行
func (s *Service) CurrentBatch() (entity.BatchView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return entity.BatchView{}, false
	}
	return *s.current, true
}

// requireCurrent 取当前批号，未选中时报错
func (s *Service) requireCurrent() (entity.BatchView, error) {
	view, ok := s.CurrentBatch()
	if !ok {
		return entity.BatchView{}, fmt.Errorf("请先选择批号")
	}
	return view, nil
}

// BatchDetail 拉取当前批号的详情
func (s *Service) BatchDetail(ctx context.Context) (entity.BatchDetail, error) {
	current, err := s.requireCurrent()
	if err != nil {
		return entity.BatchDetail{}, err
	}
	return s.client.BatchDetail(ctx, current.ID)
}

// =============================================================================
// 记录加载（代次守卫）
// =============================================================================

// LoadMaterials 加载当前批号的物料记录
// 响应返回时代次已前进（用户切换了批号）则丢弃结果。
func (s *Service) LoadMaterials(ctx context.Context) ([]entity.MaterialRecord, error) {
	if !s.perms.ViewMaterials {
		return nil, permission.Denied(s.role, "查看物料记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return nil, err
	}

	gen := s.genMaterial.Add(1)
	records, err := s.client.MaterialRecords(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if gen != s.genMaterial.Load() {
		s.logger.Debug("物料记录响应过期，丢弃",
			zap.Int64("batch_id", current.ID), zap.Int64("generation", gen))
		return nil, ErrStaleResponse
	}

	s.mu.Lock()
	s.materials = records
	s.mu.Unlock()
	return records, nil
}

// LoadEquipment 加载当前批号的设备记录
func (s *Service) LoadEquipment(ctx context.Context) ([]entity.EquipmentRecord, error) {
	if !s.perms.ViewEquipment {
		return nil, permission.Denied(s.role, "查看设备记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return nil, err
	}

	gen := s.genEquipment.Add(1)
	records, err := s.client.EquipmentRecords(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if gen != s.genEquipment.Load() {
		s.logger.Debug("设备记录响应过期，丢弃",
			zap.Int64("batch_id", current.ID), zap.Int64("generation", gen))
		return nil, ErrStaleResponse
	}

	s.mu.Lock()
	s.equipment = records
	s.mu.Unlock()
	return records, nil
}

// LoadQuality 加载当前批号的质检记录
func (s *Service) LoadQuality(ctx context.Context) ([]entity.QualityRecord, error) {
	if !s.perms.ViewQuality {
		return nil, permission.Denied(s.role, "查看质检记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return nil, err
	}

	gen := s.genQuality.Add(1)
	records, err := s.client.QualityRecords(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if gen != s.genQuality.Load() {
		s.logger.Debug("质检记录响应过期，丢弃",
			zap.Int64("batch_id", current.ID), zap.Int64("generation", gen))
		return nil, ErrStaleResponse
	}

	s.mu.Lock()
	s.quality = records
	s.mu.Unlock()
	return records, nil
}

// =============================================================================
// 物料记录
// =============================================================================

// CreateMaterial 新增物料记录
func (s *Service) CreateMaterial(ctx context.Context, payload api.MaterialPayload) (entity.MaterialRecord, error) {
	if !s.perms.ManageMaterials {
		return entity.MaterialRecord{}, permission.Denied(s.role, "新增物料记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return entity.MaterialRecord{}, err
	}
	if err := s.gate.Acquire("material_submit"); err != nil {
		return entity.MaterialRecord{}, err
	}
	defer s.gate.Release("material_submit")

	created, err := s.client.CreateMaterialRecord(ctx, current.ID, payload)
	if err != nil {
		return entity.MaterialRecord{}, err
	}
	s.mu.Lock()
	s.materials = append(s.materials, created)
	s.mu.Unlock()
	return created, nil
}

// UpdateMaterial 更新物料记录。记录必须仍在本地缓存中
func (s *Service) UpdateMaterial(ctx context.Context, recordID int64, payload api.MaterialPayload) (entity.MaterialRecord, error) {
	if !s.perms.ManageMaterials {
		return entity.MaterialRecord{}, permission.Denied(s.role, "修改物料记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return entity.MaterialRecord{}, err
	}
	if _, ok := s.findMaterial(recordID); !ok {
		return entity.MaterialRecord{}, &NotFoundError{Kind: "物料记录", ID: recordID}
	}
	if err := s.gate.Acquire("material_submit"); err != nil {
		return entity.MaterialRecord{}, err
	}
	defer s.gate.Release("material_submit")

	updated, err := s.client.UpdateMaterialRecord(ctx, current.ID, recordID, payload)
	if err != nil {
		return entity.MaterialRecord{}, err
	}
	s.replaceMaterial(updated)
	return updated, nil
}

// RemoveMaterial 删除物料记录
func (s *Service) RemoveMaterial(ctx context.Context, recordID int64) error {
	if !s.perms.ManageMaterials {
		return permission.Denied(s.role, "删除物料记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return err
	}
	if _, ok := s.findMaterial(recordID); !ok {
		return &NotFoundError{Kind: "物料记录", ID: recordID}
	}
	if err := s.gate.Acquire("material_submit"); err != nil {
		return err
	}
	defer s.gate.Release("material_submit")

	if err := s.client.DeleteMaterialRecord(ctx, current.ID, recordID); err != nil {
		return err
	}
	s.mu.Lock()
	kept := s.materials[:0]
	for _, record := range s.materials {
		if record.ID != recordID {
			kept = append(kept, record)
		}
	}
	s.materials = kept
	s.mu.Unlock()
	return nil
}

func (s *Service) findMaterial(recordID int64) (entity.MaterialRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.materials {
		if record.ID == recordID {
			return record, true
		}
	}
	return entity.MaterialRecord{}, false
}

func (s *Service) replaceMaterial(updated entity.MaterialRecord) {
	s.mu.Lock()
	for i := range s.materials {
		if s.materials[i].ID == updated.ID {
			s.materials[i] = updated
			break
		}
	}
	s.mu.Unlock()
}

// =============================================================================
// 设备记录
// =============================================================================

// CreateEquipment 新增设备记录
func (s *Service) CreateEquipment(ctx context.Context, payload api.EquipmentPayload, existingAttachments []string, files []api.Upload) (entity.EquipmentRecord, error) {
	if !s.perms.ManageEquipment {
		return entity.EquipmentRecord{}, permission.Denied(s.role, "新增设备记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return entity.EquipmentRecord{}, err
	}
	if err := s.gate.Acquire("equipment_submit"); err != nil {
		return entity.EquipmentRecord{}, err
	}
	defer s.gate.Release("equipment_submit")

	created, err := s.client.CreateEquipmentRecord(ctx, current.ID, payload, existingAttachments, files)
	if err != nil {
		return entity.EquipmentRecord{}, err
	}
	s.mu.Lock()
	s.equipment = append(s.equipment, created)
	s.mu.Unlock()
	return created, nil
}

// UpdateEquipment 更新设备记录
func (s *Service) UpdateEquipment(ctx context.Context, recordID int64, payload api.EquipmentPayload, existingAttachments []string, files []api.Upload) (entity.EquipmentRecord, error) {
	if !s.perms.ManageEquipment {
		return entity.EquipmentRecord{}, permission.Denied(s.role, "修改设备记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return entity.EquipmentRecord{}, err
	}
	if _, ok := s.findEquipment(recordID); !ok {
		return entity.EquipmentRecord{}, &NotFoundError{Kind: "设备记录", ID: recordID}
	}
	if err := s.gate.Acquire("equipment_submit"); err != nil {
		return entity.EquipmentRecord{}, err
	}
	defer s.gate.Release("equipment_submit")

	updated, err := s.client.UpdateEquipmentRecord(ctx, current.ID, recordID, payload, existingAttachments, files)
	if err != nil {
		return entity.EquipmentRecord{}, err
	}
	s.replaceEquipment(updated)
	return updated, nil
}

// RemoveEquipment 删除设备记录
func (s *Service) RemoveEquipment(ctx context.Context, recordID int64) error {
	if !s.perms.ManageEquipment {
		return permission.Denied(s.role, "删除设备记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return err
	}
	if _, ok := s.findEquipment(recordID); !ok {
		return &NotFoundError{Kind: "设备记录", ID: recordID}
	}
	if err := s.gate.Acquire("equipment_submit"); err != nil {
		return err
	}
	defer s.gate.Release("equipment_submit")

	if err := s.client.DeleteEquipmentRecord(ctx, current.ID, recordID); err != nil {
		return err
	}
	s.mu.Lock()
	kept := s.equipment[:0]
	for _, record := range s.equipment {
		if record.ID != recordID {
			kept = append(kept, record)
		}
	}
	s.equipment = kept
	s.mu.Unlock()
	return nil
}

// AttachEquipmentFile 给已有设备记录追加附件
// 以记录当前字段原样回传，保留全部已有附件并加上新文件。
func (s *Service) AttachEquipmentFile(ctx context.Context, recordID int64, filename string, content []byte) (entity.EquipmentRecord, error) {
	if !s.perms.ManageEquipment {
		return entity.EquipmentRecord{}, permission.Denied(s.role, "上传设备附件")
	}
	record, ok := s.findEquipment(recordID)
	if !ok {
		return entity.EquipmentRecord{}, &NotFoundError{Kind: "设备记录", ID: recordID}
	}
	payload := api.EquipmentPayload{
		EquipmentCode: record.EquipmentCode,
		EquipmentName: record.EquipmentName,
		StartTime:     record.StartTime,
		EndTime:       record.EndTime,
		Status:        record.Status,
		Parameters:    record.Parameters,
	}
	return s.UpdateEquipment(ctx, recordID, payload,
		entity.AttachmentPaths(record.Attachments),
		[]api.Upload{{Filename: filename, Content: content}})
}

func (s *Service) findEquipment(recordID int64) (entity.EquipmentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.equipment {
		if record.ID == recordID {
			return record, true
		}
	}
	return entity.EquipmentRecord{}, false
}

func (s *Service) replaceEquipment(updated entity.EquipmentRecord) {
	s.mu.Lock()
	for i := range s.equipment {
		if s.equipment[i].ID == updated.ID {
			s.equipment[i] = updated
			break
		}
	}
	s.mu.Unlock()
}

// =============================================================================
// 质检记录
// =============================================================================

// CreateQuality 新增质检记录
func (s *Service) CreateQuality(ctx context.Context, payload api.QualityPayload, existingAttachments []string, files []api.Upload) (entity.QualityRecord, error) {
	if !s.perms.ManageQuality {
		return entity.QualityRecord{}, permission.Denied(s.role, "新增质检记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return entity.QualityRecord{}, err
	}
	if err := s.gate.Acquire("quality_submit"); err != nil {
		return entity.QualityRecord{}, err
	}
	defer s.gate.Release("quality_submit")

	created, err := s.client.CreateQualityRecord(ctx, current.ID, payload, existingAttachments, files)
	if err != nil {
		return entity.QualityRecord{}, err
	}
	s.mu.Lock()
	s.quality = append(s.quality, created)
	s.mu.Unlock()
	return created, nil
}

// UpdateQuality 更新质检记录
func (s *Service) UpdateQuality(ctx context.Context, recordID int64, payload api.QualityPayload, existingAttachments []string, files []api.Upload) (entity.QualityRecord, error) {
	if !s.perms.ManageQuality {
		return entity.QualityRecord{}, permission.Denied(s.role, "修改质检记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return entity.QualityRecord{}, err
	}
	if _, ok := s.findQuality(recordID); !ok {
		return entity.QualityRecord{}, &NotFoundError{Kind: "质检记录", ID: recordID}
	}
	if err := s.gate.Acquire("quality_submit"); err != nil {
		return entity.QualityRecord{}, err
	}
	defer s.gate.Release("quality_submit")

	updated, err := s.client.UpdateQualityRecord(ctx, current.ID, recordID, payload, existingAttachments, files)
	if err != nil {
		return entity.QualityRecord{}, err
	}
	s.replaceQuality(updated)
	return updated, nil
}

// RemoveQuality 删除质检记录
func (s *Service) RemoveQuality(ctx context.Context, recordID int64) error {
	if !s.perms.ManageQuality {
		return permission.Denied(s.role, "删除质检记录")
	}
	current, err := s.requireCurrent()
	if err != nil {
		return err
	}
	if _, ok := s.findQuality(recordID); !ok {
		return &NotFoundError{Kind: "质检记录", ID: recordID}
	}
	if err := s.gate.Acquire("quality_submit"); err != nil {
		return err
	}
	defer s.gate.Release("quality_submit")

	if err := s.client.DeleteQualityRecord(ctx, current.ID, recordID); err != nil {
		return err
	}
	s.mu.Lock()
	kept := s.quality[:0]
	for _, record := range s.quality {
		if record.ID != recordID {
			kept = append(kept, record)
		}
	}
	s.quality = kept
	s.mu.Unlock()
	return nil
}

func (s *Service) findQuality(recordID int64) (entity.QualityRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.quality {
		if record.ID == recordID {
			return record, true
		}
	}
	return entity.QualityRecord{}, false
}

func (s *Service) replaceQuality(updated entity.QualityRecord) {
	s.mu.Lock()
	for i := range s.quality {
		if s.quality[i].ID == updated.ID {
			s.quality[i] = updated
			break
		}
	}
	s.mu.Unlock()
}
