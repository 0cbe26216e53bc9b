package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/xieshentoken/miniMES/internal/entity"
)

// =============================================================================
// 工序与录入定义接口
// =============================================================================

// ProcessSegments 拉取工序列表
func (c *Client) ProcessSegments(ctx context.Context) ([]entity.ProcessSegment, error) {
	var segments []entity.ProcessSegment
	if err := c.doRequest(ctx, http.MethodGet, "/api/process_segments", nil, &segments); err != nil {
		return nil, fmt.Errorf("获取工序列表失败: %w", err)
	}
	return segments, nil
}

// SegmentDefinition 拉取指定工段的物料/设备/检测录入定义
func (c *Client) SegmentDefinition(ctx context.Context, segment string) (entity.SegmentDefinition, error) {
	var def entity.SegmentDefinition
	path := "/api/segment_definitions?segment=" + url.QueryEscape(segment)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &def); err != nil {
		return entity.SegmentDefinition{}, fmt.Errorf("获取工段定义失败: %w", err)
	}
	return def, nil
}

// RecordFieldConfig 拉取记录字段配置（设备状态选项、批号状态选项等）
func (c *Client) RecordFieldConfig(ctx context.Context) (entity.RecordFieldConfig, error) {
	var cfg entity.RecordFieldConfig
	if err := c.doRequest(ctx, http.MethodGet, "/api/config/record_fields", nil, &cfg); err != nil {
		return entity.RecordFieldConfig{}, fmt.Errorf("获取字段配置失败: %w", err)
	}
	return cfg, nil
}
