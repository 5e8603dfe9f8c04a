package main

import (
	"context"
	"flag"
	"strconv"
	"time"

	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
	"github.com/dujiao-next/warehouse/internal/provider"
	"github.com/dujiao-next/warehouse/internal/repository"
	"github.com/dujiao-next/warehouse/internal/service"
	"github.com/dujiao-next/warehouse/internal/store"
)

func main() {
	var withDemo bool
	flag.BoolVar(&withDemo, "demo", false, "写入演示库存数据（仅在库存表为空时）")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	// 数据表与容量行
	fileStore := store.NewFileStore(provider.TableStoreOptions(cfg.Warehouse))
	if err := fileStore.Init(); err != nil {
		stdLog.Fatalf("Failed to init tables: %v", err)
	}
	status := fileStore.Status()
	stdLog.Printf("Tables ready in %s (missing: %v)", status.DataDir, status.Missing)

	// 操作员账号库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultOperator(cfg.Auth.DefaultUsername, cfg.Auth.DefaultPassword); err != nil {
		stdLog.Fatalf("Failed to init default operator: %v", err)
	}
	stdLog.Printf("Default operator ensured")

	if !withDemo {
		return
	}
	repo := repository.NewFileTableRepository(fileStore, 0)
	tables, err := repo.LoadFresh()
	if err != nil {
		stdLog.Fatalf("Failed to load tables: %v", err)
	}
	if len(tables.Inventory) > 0 {
		stdLog.Printf("Inventory already has %d lots, demo data skipped", len(tables.Inventory))
		return
	}

	inventory := service.NewInventoryService(repo, cfg.Warehouse)
	result, err := inventory.StockIn(context.Background(), service.StockInInput{
		Items:           demoItems(cfg.Warehouse),
		Time:            time.Now().Format("2006-01-02 15:04:05"),
		DefaultOperator: "seed",
	})
	if err != nil {
		stdLog.Fatalf("Failed to seed demo inventory: %v", err)
	}
	stdLog.Printf("Demo inventory: %s", result.Message)
}

func demoItems(wh config.WarehouseConfig) []service.StockInItem {
	productType := "面料"
	if len(wh.ProductTypes) > 0 {
		productType = wh.ProductTypes[0]
	}
	floor := "1"
	if len(wh.Floors) > 0 {
		floor = strconv.Itoa(wh.Floors[0])
	}
	return []service.StockInItem{
		{Code: "DEMO-001", Type: productType, AddressType: "1", Floor: floor, ShelfNo: "A1", BoxNo: "01", Quantity: "20", Spec: "150cm", Color: "藏青", Material: "棉", Manufacturer: "示例纺织厂", Phone: "021-00000000"},
		{Code: "DEMO-001", Type: productType, AddressType: "1", Floor: floor, ShelfNo: "A1", BoxNo: "02", Quantity: "15", Spec: "150cm", Color: "米白", Material: "棉", Manufacturer: "示例纺织厂", Phone: "021-00000000"},
		{Code: "DEMO-002", Type: productType, AddressType: "2", Floor: floor, BoxNo: "B3-01", Quantity: "-1", Spec: "样册", Notes: "特殊库存"},
	}
}
