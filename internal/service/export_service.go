package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"

	"github.com/xuri/excelize/v2"
)

// 导出格式
const (
	ExportFormatCSV  = constants.ExportFormatCSV
	ExportFormatXLSX = constants.ExportFormatXLSX
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportFile 导出文件
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// operationExportHeaders 操作记录导出列
var operationExportHeaders = []string{
	"操作ID", "库存ID", "操作类型", "操作时间", "操作数量", "操作人", "备注",
	"货号", "类型", "规格", "材质", "颜色", "单位",
	"地址类型", "楼层", "架号", "框号", "包号", "厂家", "电话",
}

// inventoryExportHeaders 库存导出列
var inventoryExportHeaders = []string{
	"库存ID", "货号", "类型", "规格", "颜色", "单位",
	"地址类型", "楼层", "架号", "框号", "包号", "厂家",
	"累计入库", "累计出库", "累计借出", "累计归还", "未归还", "当前库存", "状态", "最后操作时间",
}

// ExportService 操作记录与库存导出，只读
type ExportService struct {
	inventory *InventoryService
}

// NewExportService 创建导出服务
func NewExportService(inventory *InventoryService) *ExportService {
	return &ExportService{inventory: inventory}
}

// NormalizeExportFormat 校验导出格式，空值默认 CSV
func NormalizeExportFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatXLSX, "excel":
		return ExportFormatXLSX, nil
	default:
		return "", validationError("导出格式无效，仅支持 csv 或 xlsx")
	}
}

// ExportOperationRecords 按筛选条件导出操作记录
func (s *ExportService) ExportOperationRecords(filter OperationRecordFilter, format string) (*ExportFile, error) {
	format, err := NormalizeExportFormat(format)
	if err != nil {
		return nil, err
	}
	tables, err := s.inventory.snapshot()
	if err != nil {
		return nil, err
	}
	views, err := filterOperationRecords(tables, filter)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, operationExportRow(v))
	}
	file, err := s.render("操作记录", "operation_records", format, operationExportHeaders, rows)
	if err != nil {
		return nil, err
	}
	logger.Infow("operation_records_exported", "format", format, "rows", file.Rows)
	return file, nil
}

// ExportInventory 按列表筛选条件导出全部匹配的库存（不分页）
func (s *ExportService) ExportInventory(filter InventoryListFilter, format string) (*ExportFile, error) {
	format, err := NormalizeExportFormat(format)
	if err != nil {
		return nil, err
	}
	tables, err := s.inventory.snapshot()
	if err != nil {
		return nil, err
	}
	lots := matchLots(tables, filter)
	rows := make([][]string, 0, len(lots))
	for _, v := range lots {
		rows = append(rows, inventoryExportRow(v))
	}
	file, err := s.render("库存", "inventory", format, inventoryExportHeaders, rows)
	if err != nil {
		return nil, err
	}
	logger.Infow("inventory_exported", "format", format, "rows", file.Rows)
	return file, nil
}

func (s *ExportService) render(sheet, prefix, format string, headers []string, rows [][]string) (*ExportFile, error) {
	name := fmt.Sprintf("%s_%s.%s", prefix, exportTimestamp(s.inventory.now()), format)
	var (
		data []byte
		err  error
	)
	contentType := csvContentType
	if format == ExportFormatXLSX {
		contentType = xlsxContentType
		data, err = renderXLSX(sheet, headers, rows)
	} else {
		data, err = renderCSV(headers, rows)
	}
	if err != nil {
		logger.Errorw("export_render_failed", "format", format, "error", err)
		return nil, storageError(err, "导出文件生成失败")
	}
	return &ExportFile{Name: name, ContentType: contentType, Data: data, Rows: len(rows)}, nil
}

// renderCSV 带 BOM 的 UTF-8 CSV，便于表格软件直接打开
func renderCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(sheet string, headers []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
		f.SetColWidth(sheet, col, col, float64(max(10, len([]rune(h))*3)))
	}
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, value)
		}
	}
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func operationExportRow(v OperationRecordView) []string {
	op := v.Operation
	row := []string{
		strconv.Itoa(op.ID),
		strconv.Itoa(op.InventoryID),
		op.Type,
		op.TimeText(),
		op.Quantity.Text(),
		op.Operator,
		op.Note,
	}
	unit := ""
	if v.Inventory != nil {
		unit = v.Inventory.Unit
	}
	row = append(row, productColumns(v.Product)...)
	row = append(row, featureColumns(v.Feature, true)...)
	row = append(row, unit)
	row = append(row, locationColumns(v.Location)...)
	if v.Manufacturer != nil {
		row = append(row, v.Manufacturer.Name, v.Manufacturer.Phone)
	} else {
		row = append(row, "", "")
	}
	return row
}

func inventoryExportRow(v LotView) []string {
	row := []string{strconv.Itoa(v.Inventory.ID)}
	row = append(row, productColumns(v.Product)...)
	row = append(row, featureColumns(v.Feature, false)...)
	row = append(row, v.Inventory.Unit)
	row = append(row, locationColumns(v.Location)...)
	manufacturer := ""
	if v.Manufacturer != nil {
		manufacturer = v.Manufacturer.Name
	}
	return append(row,
		manufacturer,
		v.TotalIn.Text(),
		v.TotalOut.Text(),
		v.TotalLend.Text(),
		v.TotalReturn.Text(),
		v.Unreturned.Text(),
		v.CurrentStock.Text(),
		v.Status,
		v.LastOperation,
	)
}

func productColumns(p *models.Product) []string {
	if p == nil {
		return []string{"", ""}
	}
	return []string{p.Code, p.Type}
}

func featureColumns(f *models.Feature, withMaterial bool) []string {
	if f == nil {
		if withMaterial {
			return []string{"", "", ""}
		}
		return []string{"", ""}
	}
	if withMaterial {
		return []string{f.Spec, f.Material, f.Color}
	}
	return []string{f.Spec, f.Color}
}

func locationColumns(l *models.Location) []string {
	if l == nil {
		return []string{"", "", "", "", ""}
	}
	return []string{strconv.Itoa(l.AddressType), strconv.Itoa(l.Floor), l.ShelfNo, l.BoxNo, l.PackageNo}
}

// exportTimestamp 导出文件名时间戳
func exportTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}
