package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xieshentoken/miniMES/internal/api"
	"github.com/xieshentoken/miniMES/internal/config"
	"github.com/xieshentoken/miniMES/internal/deletion"
	"github.com/xieshentoken/miniMES/internal/lifecycle"
	"github.com/xieshentoken/miniMES/internal/permission"
	"github.com/xieshentoken/miniMES/internal/schema"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Debug("Starting miniMES client",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("role", cfg.Session.Role),
	)

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, zapLogger)
	registry := schema.NewRegistry(client, zapLogger)
	service := lifecycle.NewService(client, registry, cfg.Session.Role, zapLogger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	if err := run(ctx, service, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *lifecycle.Service, command string, args []string) error {
	switch command {
	case "batches":
		views, err := svc.RefreshBatches(ctx)
		if err != nil {
			return err
		}
		for _, view := range views {
			marker := " "
			if view.IsLatestSegment {
				marker = "*"
			}
			fmt.Printf("%s %6d  %-12s %-16s %-8s %s\n",
				marker, view.ID, view.BatchNumber, view.ProductName, view.ProcessSegment, view.Status)
		}
		return nil

	case "detail":
		batchID, err := argID(args, 0)
		if err != nil {
			return err
		}
		if _, err := svc.RefreshBatches(ctx); err != nil {
			return err
		}
		if err := svc.SelectBatch(batchID); err != nil {
			return err
		}
		detail, err := svc.BatchDetail(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("批号: %s  产品: %s  工段: %s  状态: %s\n",
			detail.Batch.BatchNumber, detail.Batch.ProductName,
			detail.Batch.ProcessSegment, detail.Batch.Status)
		fmt.Printf("记录: 物料%d条 设备%d条 质检%d条\n",
			detail.Summary.MaterialTotal, detail.Summary.EquipmentTotal, detail.Summary.QualityTotal)
		return nil

	case "materials":
		return showMaterials(ctx, svc, args)

	case "equipment":
		return showEquipment(ctx, svc, args)

	case "quality":
		return showQuality(ctx, svc, args)

	case "create":
		if len(args) < 3 {
			return fmt.Errorf("用法: create <批号> <产品> <工段> [--yes]")
		}
		if _, err := svc.RefreshBatches(ctx); err != nil {
			return err
		}
		created, err := svc.CreateBatch(ctx, api.CreateBatchRequest{
			BatchNumber:    args[0],
			ProductName:    args[1],
			ProcessSegment: args[2],
		}, hasFlag(args, "--yes"))
		if err != nil {
			return err
		}
		fmt.Printf("批号已创建: id=%d %s\n", created.ID, created.BatchNumber)
		return nil

	case "status":
		return updateBatch(ctx, svc, args, func(value string, confirmed bool) error {
			view, err := svc.UpdateBatchStatus(ctx, value, confirmed)
			if err != nil {
				return err
			}
			fmt.Printf("批号 %s 状态: %s\n", view.BatchNumber, view.Status)
			return nil
		})

	case "segment":
		return updateBatch(ctx, svc, args, func(value string, confirmed bool) error {
			view, err := svc.UpdateBatchSegment(ctx, value, confirmed)
			if err != nil {
				return err
			}
			fmt.Printf("批号 %s 工段: %s\n", view.BatchNumber, view.ProcessSegment)
			return nil
		})

	case "duplicate":
		if len(args) < 2 {
			return fmt.Errorf("用法: duplicate <批号id> <新批号> [产品] [工段] [--copy] [--yes]")
		}
		batchID, err := argID(args, 0)
		if err != nil {
			return err
		}
		if _, err := svc.RefreshBatches(ctx); err != nil {
			return err
		}
		if err := svc.SelectBatch(batchID); err != nil {
			return err
		}
		source, _ := svc.CurrentBatch()
		req := api.DuplicateBatchRequest{
			BatchNumber:    args[1],
			ProductName:    source.ProductName,
			ProcessSegment: source.ProcessSegment,
			CopyRecords:    hasFlag(args, "--copy"),
		}
		created, err := svc.DuplicateBatch(ctx, req, hasFlag(args, "--yes"))
		if err != nil {
			return err
		}
		fmt.Printf("批号已复制: id=%d %s\n", created.ID, created.BatchNumber)
		return nil

	case "delete":
		batchID, err := argID(args, 0)
		if err != nil {
			return err
		}
		if _, err := svc.RefreshBatches(ctx); err != nil {
			return err
		}
		if err := svc.DeleteBatch(ctx, batchID); err != nil {
			return err
		}
		fmt.Println("批号已删除")
		return nil

	case "bulk-delete":
		if len(args) < 4 {
			return fmt.Errorf("用法: bulk-delete <产品> <批号> <工段> <状态>")
		}
		if _, err := svc.RefreshBatches(ctx); err != nil {
			return err
		}
		_, message, err := svc.BulkDelete(ctx, deletion.Selection{
			ProductName:    args[0],
			BatchNumber:    args[1],
			ProcessSegment: args[2],
			Status:         args[3],
		})
		if err != nil {
			return err
		}
		fmt.Println(message)
		return nil

	case "permissions":
		set := svc.Permissions()
		fmt.Printf("角色: %s（%s）\n", svc.Role(), permission.DisplayName(svc.Role()))
		fmt.Printf("物料: 查看=%v 管理=%v\n", set.ViewMaterials, set.ManageMaterials)
		fmt.Printf("设备: 查看=%v 管理=%v\n", set.ViewEquipment, set.ManageEquipment)
		fmt.Printf("质检: 查看=%v 管理=%v\n", set.ViewQuality, set.ManageQuality)
		fmt.Printf("批号: 新建=%v 复制=%v 改状态=%v 改工段=%v 删除=%v\n",
			set.CreateBatch, set.DuplicateBatch, set.ManageBatchStatus,
			set.ManageBatchSegment, permission.CanBulkDelete(svc.Role()))
		return nil

	default:
		usage()
		return fmt.Errorf("未知命令: %s", command)
	}
}

func showMaterials(ctx context.Context, svc *lifecycle.Service, args []string) error {
	if err := selectBatchArg(ctx, svc, args); err != nil {
		return err
	}
	records, err := svc.LoadMaterials(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("%6d  %-12s %-16s %10.3f %s\n",
			rec.ID, rec.MaterialCode, rec.MaterialName, rec.Weight, rec.Unit)
	}
	return nil
}

func showEquipment(ctx context.Context, svc *lifecycle.Service, args []string) error {
	if err := selectBatchArg(ctx, svc, args); err != nil {
		return err
	}
	records, err := svc.LoadEquipment(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("%6d  %-12s %-16s %-8s 附件%d个\n",
			rec.ID, rec.EquipmentCode, rec.EquipmentName, rec.Status, len(rec.Attachments))
	}
	return nil
}

func showQuality(ctx context.Context, svc *lifecycle.Service, args []string) error {
	if err := selectBatchArg(ctx, svc, args); err != nil {
		return err
	}
	records, err := svc.LoadQuality(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		value := "-"
		if rec.TestValue != nil {
			value = fmt.Sprintf("%.3f", *rec.TestValue)
		}
		fmt.Printf("%6d  %-16s %10s %-6s\n", rec.ID, rec.TestItem, value, rec.Result)
	}
	return nil
}

func updateBatch(ctx context.Context, svc *lifecycle.Service, args []string, apply func(value string, confirmed bool) error) error {
	if len(args) < 2 {
		return fmt.Errorf("用法: <批号id> <新值> [--yes]")
	}
	batchID, err := argID(args, 0)
	if err != nil {
		return err
	}
	if _, err := svc.RefreshBatches(ctx); err != nil {
		return err
	}
	if err := svc.SelectBatch(batchID); err != nil {
		return err
	}
	return apply(args[1], hasFlag(args, "--yes"))
}

func selectBatchArg(ctx context.Context, svc *lifecycle.Service, args []string) error {
	batchID, err := argID(args, 0)
	if err != nil {
		return err
	}
	if _, err := svc.RefreshBatches(ctx); err != nil {
		return err
	}
	return svc.SelectBatch(batchID)
}

func argID(args []string, index int) (int64, error) {
	if len(args) <= index {
		return 0, fmt.Errorf("缺少批号id参数")
	}
	var id int64
	if _, err := fmt.Sscanf(args[index], "%d", &id); err != nil {
		return 0, fmt.Errorf("批号id格式错误: %s", args[index])
	}
	return id, nil
}

func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

func usage() {
	fmt.Fprintln(os.Stderr, `用法: batchtrack <命令> [参数]

命令:
  batches                                  批号列表（*为当前工段）
  detail <批号id>                          批号详情
  materials|equipment|quality <批号id>     三类记录
  create <批号> <产品> <工段> [--yes]      新建批号
  status <批号id> <状态> [--yes]           更新状态
  segment <批号id> <工段> [--yes]          更新工段
  duplicate <批号id> <新批号> [--copy] [--yes]  复制批号
  delete <批号id>                          删除批号（管理员）
  bulk-delete <产品> <批号> <工段> <状态>  批量删除（管理员）
  permissions                              当前角色权限`)
}

// initLogger 按配置构建zap
func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Output != "" && cfg.Output != "stdout" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}
	return zapCfg.Build()
}
