package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xieshentoken/miniMES/internal/entity"
)

// =============================================================================
// 批号下三类记录的CRUD接口
// 物料记录走JSON，设备与质检记录带附件走multipart
// =============================================================================

// MaterialPayload 物料记录的请求字段
type MaterialPayload struct {
	MaterialCode string                 `json:"material_code"`
	MaterialName string                 `json:"material_name"`
	Weight       float64                `json:"weight"`
	Unit         string                 `json:"unit,omitempty"`
	Supplier     string                 `json:"supplier,omitempty"`
	LotNumber    string                 `json:"lot_number,omitempty"`
	Extras       map[string]interface{} `json:"extras,omitempty"`
}

// EquipmentPayload 设备记录的请求字段
type EquipmentPayload struct {
	EquipmentCode string                 `json:"equipment_code"`
	EquipmentName string                 `json:"equipment_name"`
	StartTime     string                 `json:"start_time"`
	EndTime       string                 `json:"end_time,omitempty"`
	Status        string                 `json:"status"`
	Parameters    map[string]interface{} `json:"parameters"`
}

// QualityPayload 质检记录的请求字段
type QualityPayload struct {
	TestItem    string                 `json:"test_item"`
	TestValue   *float64               `json:"test_value"`
	StandardMin *float64               `json:"standard_min"`
	StandardMax *float64               `json:"standard_max"`
	Result      string                 `json:"result"`
	Unit        string                 `json:"unit,omitempty"`
	TestDevice  string                 `json:"test_device,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	Extras      map[string]interface{} `json:"extras,omitempty"`
}

// MaterialRecords 拉取批号下的物料记录
func (c *Client) MaterialRecords(ctx context.Context, batchID int64) ([]entity.MaterialRecord, error) {
	var records []entity.MaterialRecord
	path := fmt.Sprintf("/api/batches/%d/materials", batchID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, fmt.Errorf("获取物料记录失败: %w", err)
	}
	return records, nil
}

// CreateMaterialRecord 新增物料记录
func (c *Client) CreateMaterialRecord(ctx context.Context, batchID int64, payload MaterialPayload) (entity.MaterialRecord, error) {
	var created entity.MaterialRecord
	path := fmt.Sprintf("/api/batches/%d/materials", batchID)
	if err := c.doRequest(ctx, http.MethodPost, path, payload, &created); err != nil {
		return entity.MaterialRecord{}, fmt.Errorf("新增物料记录失败: %w", err)
	}
	return created, nil
}

// UpdateMaterialRecord 更新物料记录
func (c *Client) UpdateMaterialRecord(ctx context.Context, batchID, recordID int64, payload MaterialPayload) (entity.MaterialRecord, error) {
	var updated entity.MaterialRecord
	path := fmt.Sprintf("/api/batches/%d/materials/%d", batchID, recordID)
	if err := c.doRequest(ctx, http.MethodPut, path, payload, &updated); err != nil {
		return entity.MaterialRecord{}, fmt.Errorf("更新物料记录失败: %w", err)
	}
	return updated, nil
}

// DeleteMaterialRecord 删除物料记录
func (c *Client) DeleteMaterialRecord(ctx context.Context, batchID, recordID int64) error {
	path := fmt.Sprintf("/api/batches/%d/materials/%d", batchID, recordID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("删除物料记录失败: %w", err)
	}
	return nil
}

// EquipmentRecords 拉取批号下的设备记录
func (c *Client) EquipmentRecords(ctx context.Context, batchID int64) ([]entity.EquipmentRecord, error) {
	var records []entity.EquipmentRecord
	path := fmt.Sprintf("/api/batches/%d/equipment", batchID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, fmt.Errorf("获取设备记录失败: %w", err)
	}
	return records, nil
}

// CreateEquipmentRecord 新增设备记录
// existingAttachments为保留的附件路径，files为新上传文件
func (c *Client) CreateEquipmentRecord(ctx context.Context, batchID int64, payload EquipmentPayload, existingAttachments []string, files []Upload) (entity.EquipmentRecord, error) {
	var created entity.EquipmentRecord
	path := fmt.Sprintf("/api/batches/%d/equipment", batchID)
	if err := c.doMultipart(ctx, http.MethodPost, path, payload, existingAttachments, files, &created); err != nil {
		return entity.EquipmentRecord{}, fmt.Errorf("新增设备记录失败: %w", err)
	}
	return created, nil
}

// UpdateEquipmentRecord 更新设备记录
// 服务端以 保留列表加新文件 整体替换附件集合
func (c *Client) UpdateEquipmentRecord(ctx context.Context, batchID, recordID int64, payload EquipmentPayload, existingAttachments []string, files []Upload) (entity.EquipmentRecord, error) {
	var updated entity.EquipmentRecord
	path := fmt.Sprintf("/api/batches/%d/equipment/%d", batchID, recordID)
	if err := c.doMultipart(ctx, http.MethodPut, path, payload, existingAttachments, files, &updated); err != nil {
		return entity.EquipmentRecord{}, fmt.Errorf("更新设备记录失败: %w", err)
	}
	return updated, nil
}

// DeleteEquipmentRecord 删除设备记录
func (c *Client) DeleteEquipmentRecord(ctx context.Context, batchID, recordID int64) error {
	path := fmt.Sprintf("/api/batches/%d/equipment/%d", batchID, recordID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("删除设备记录失败: %w", err)
	}
	return nil
}

// QualityRecords 拉取批号下的质检记录
func (c *Client) QualityRecords(ctx context.Context, batchID int64) ([]entity.QualityRecord, error) {
	var records []entity.QualityRecord
	path := fmt.Sprintf("/api/batches/%d/quality", batchID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, fmt.Errorf("获取质检记录失败: %w", err)
	}
	return records, nil
}

// CreateQualityRecord 新增质检记录
func (c *Client) CreateQualityRecord(ctx context.Context, batchID int64, payload QualityPayload, existingAttachments []string, files []Upload) (entity.QualityRecord, error) {
	var created entity.QualityRecord
	path := fmt.Sprintf("/api/batches/%d/quality", batchID)
	if err := c.doMultipart(ctx, http.MethodPost, path, payload, existingAttachments, files, &created); err != nil {
		return entity.QualityRecord{}, fmt.Errorf("新增质检记录失败: %w", err)
	}
	return created, nil
}

// UpdateQualityRecord 更新质检记录
func (c *Client) UpdateQualityRecord(ctx context.Context, batchID, recordID int64, payload QualityPayload, existingAttachments []string, files []Upload) (entity.QualityRecord, error) {
	var updated entity.QualityRecord
	path := fmt.Sprintf("/api/batches/%d/quality/%d", batchID, recordID)
	if err := c.doMultipart(ctx, http.MethodPut, path, payload, existingAttachments, files, &updated); err != nil {
		return entity.QualityRecord{}, fmt.Errorf("更新质检记录失败: %w", err)
	}
	return updated, nil
}

// DeleteQualityRecord 删除质检记录
func (c *Client) DeleteQualityRecord(ctx context.Context, batchID, recordID int64) error {
	path := fmt.Sprintf("/api/batches/%d/quality/%d", batchID, recordID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("删除质检记录失败: %w", err)
	}
	return nil
}
