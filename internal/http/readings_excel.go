package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/xuri/excelize/v2"
)

const readingsSheetName = "Readings"

// readingColumns 导出列：表头、列宽、取值
var readingColumns = []struct {
	header string
	width  float64
	value  func(r *models.VitalReading) interface{}
}{
	{"Time (UTC)", 22, func(r *models.VitalReading) interface{} {
		return time.UnixMilli(r.Timestamp).UTC().Format("2006-01-02 15:04:05")
	}},
	{"Device ID", 18, func(r *models.VitalReading) interface{} { return r.DeviceID }},
	{"Patient ID", 18, func(r *models.VitalReading) interface{} { return r.PatientID }},
	{"Patient Name", 20, func(r *models.VitalReading) interface{} { return r.PatientName }},
	{"Heart Rate (bpm)", 16, func(r *models.VitalReading) interface{} { return numberCell(r.HeartRate) }},
	{"SpO2 (%)", 12, func(r *models.VitalReading) interface{} { return numberCell(r.SpO2) }},
	{"Body Temp (°C)", 16, func(r *models.VitalReading) interface{} { return numberCell(r.BodyTemp) }},
	{"Ambient Temp (°C)", 18, func(r *models.VitalReading) interface{} { return numberCell(r.AmbientTemp) }},
	{"Acc Magnitude (g)", 18, func(r *models.VitalReading) interface{} { return numberCell(r.AccMagnitude) }},
	{"Blood Sugar (mg/dL)", 20, func(r *models.VitalReading) interface{} { return numberCell(r.BloodSugar) }},
	{"BP Systolic", 12, func(r *models.VitalReading) interface{} { return numberCell(r.BloodPressureSystolic) }},
	{"BP Diastolic", 12, func(r *models.VitalReading) interface{} { return numberCell(r.BloodPressureDiastolic) }},
	{"Fall Detected", 14, func(r *models.VitalReading) interface{} {
		if r.FallDetected {
			return "Yes"
		}
		return "No"
	}},
}

func numberCell(n *models.Number) interface{} {
	if n == nil || !n.Valid {
		return nil
	}
	return n.Value
}

// GenerateReadingsExport 生成设备读数的 xlsx
func GenerateReadingsExport(readings []models.VitalReading) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 需要文件保持打开，不能 defer Close

	index, err := f.NewSheet(readingsSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 表头与列宽
	for i, c := range readingColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(readingsSheetName, cell, c.header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(readingsSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(readingsSheetName, col, col, c.width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 数据从第 2 行开始，缺失的指标留空
	for rowIdx := range readings {
		row := rowIdx + 2
		for colIdx, c := range readingColumns {
			value := c.value(&readings[rowIdx])
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(readingsSheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(readingsSheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}
