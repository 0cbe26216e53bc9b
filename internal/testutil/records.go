package testutil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xieshentoken/miniMES/internal/entity"
)

// =============================================================================
// 三类记录路由。物料走JSON，设备与质检走三段式multipart。
// =============================================================================

func registerMaterialRoutes(api *gin.RouterGroup, store *Store) {
	api.GET("/batches/:id/materials", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		if store.BeforeMaterialList != nil {
			store.BeforeMaterialList()
		}
		store.mu.Lock()
		records := append([]entity.MaterialRecord{}, store.materials[row.ID]...)
		store.mu.Unlock()
		c.JSON(http.StatusOK, records)
	})

	api.POST("/batches/:id/materials", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		var record entity.MaterialRecord
		if err := c.ShouldBindJSON(&record); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
			return
		}
		if record.MaterialCode == "" || record.MaterialName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "物料编码和名称不能为空"})
			return
		}
		created := store.SeedMaterial(row.ID, record)
		c.JSON(http.StatusCreated, created)
	})

	api.PUT("/batches/:id/materials/:recordId", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		recordID, ok := paramID(c, "recordId")
		if !ok {
			return
		}
		var record entity.MaterialRecord
		if err := c.ShouldBindJSON(&record); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
			return
		}
		store.mu.Lock()
		defer store.mu.Unlock()
		for i := range store.materials[row.ID] {
			if store.materials[row.ID][i].ID == recordID {
				record.ID = recordID
				record.BatchID = row.ID
				store.materials[row.ID][i] = record
				c.JSON(http.StatusOK, record)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "物料记录不存在"})
	})

	api.DELETE("/batches/:id/materials/:recordId", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		recordID, ok := paramID(c, "recordId")
		if !ok {
			return
		}
		store.mu.Lock()
		defer store.mu.Unlock()
		kept := store.materials[row.ID][:0]
		found := false
		for _, rec := range store.materials[row.ID] {
			if rec.ID == recordID {
				found = true
				continue
			}
			kept = append(kept, rec)
		}
		store.materials[row.ID] = kept
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "物料记录不存在"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func registerEquipmentRoutes(api *gin.RouterGroup, store *Store) {
	api.GET("/batches/:id/equipment", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		store.mu.Lock()
		records := append([]entity.EquipmentRecord{}, store.equipment[row.ID]...)
		store.mu.Unlock()
		c.JSON(http.StatusOK, records)
	})

	api.POST("/batches/:id/equipment", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		var record entity.EquipmentRecord
		existing, uploaded, ok := multipartPayload(c, &record)
		if !ok {
			return
		}
		record.Attachments = buildAttachments(existing, uploaded)
		created := store.SeedEquipment(row.ID, record)
		c.JSON(http.StatusCreated, created)
	})

	api.PUT("/batches/:id/equipment/:recordId", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		recordID, ok := paramID(c, "recordId")
		if !ok {
			return
		}
		var record entity.EquipmentRecord
		existing, uploaded, ok := multipartPayload(c, &record)
		if !ok {
			return
		}
		store.mu.Lock()
		defer store.mu.Unlock()
		for i := range store.equipment[row.ID] {
			if store.equipment[row.ID][i].ID == recordID {
				record.ID = recordID
				record.BatchID = row.ID
				// 附件集合整体替换：保留列表加新文件
				record.Attachments = buildAttachments(existing, uploaded)
				store.equipment[row.ID][i] = record
				c.JSON(http.StatusOK, record)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "设备记录不存在"})
	})

	api.DELETE("/batches/:id/equipment/:recordId", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		recordID, ok := paramID(c, "recordId")
		if !ok {
			return
		}
		store.mu.Lock()
		defer store.mu.Unlock()
		kept := store.equipment[row.ID][:0]
		found := false
		for _, rec := range store.equipment[row.ID] {
			if rec.ID == recordID {
				found = true
				continue
			}
			kept = append(kept, rec)
		}
		store.equipment[row.ID] = kept
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "设备记录不存在"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func registerQualityRoutes(api *gin.RouterGroup, store *Store) {
	api.GET("/batches/:id/quality", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		store.mu.Lock()
		records := append([]entity.QualityRecord{}, store.quality[row.ID]...)
		store.mu.Unlock()
		c.JSON(http.StatusOK, records)
	})

	api.POST("/batches/:id/quality", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		var record entity.QualityRecord
		existing, uploaded, ok := multipartPayload(c, &record)
		if !ok {
			return
		}
		// 入库时按标准范围重新判定
		record.Result = entity.EvaluateQualityResult(record.TestValue, record.StandardMin, record.StandardMax)
		record.Attachments = buildAttachments(existing, uploaded)
		created := store.SeedQuality(row.ID, record)
		c.JSON(http.StatusCreated, created)
	})

	api.PUT("/batches/:id/quality/:recordId", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		recordID, ok := paramID(c, "recordId")
		if !ok {
			return
		}
		var record entity.QualityRecord
		existing, uploaded, ok := multipartPayload(c, &record)
		if !ok {
			return
		}
		store.mu.Lock()
		defer store.mu.Unlock()
		for i := range store.quality[row.ID] {
			if store.quality[row.ID][i].ID == recordID {
				record.ID = recordID
				record.BatchID = row.ID
				record.Result = entity.EvaluateQualityResult(record.TestValue, record.StandardMin, record.StandardMax)
				record.Attachments = buildAttachments(existing, uploaded)
				store.quality[row.ID][i] = record
				c.JSON(http.StatusOK, record)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "质检记录不存在"})
	})

	api.DELETE("/batches/:id/quality/:recordId", func(c *gin.Context) {
		row, ok := store.findRow(c)
		if !ok {
			return
		}
		recordID, ok := paramID(c, "recordId")
		if !ok {
			return
		}
		store.mu.Lock()
		defer store.mu.Unlock()
		kept := store.quality[row.ID][:0]
		found := false
		for _, rec := range store.quality[row.ID] {
			if rec.ID == recordID {
				found = true
				continue
			}
			kept = append(kept, rec)
		}
		store.quality[row.ID] = kept
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "质检记录不存在"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}
