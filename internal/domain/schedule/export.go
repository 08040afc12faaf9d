package schedule

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetMedications = "Medications"
	sheetTests       = "Tests"
	sheetSurgeries   = "Surgeries"
)

// ExportSchedules renders GetSchedules for patientEmail as an xlsx workbook.
func (s *Service) ExportSchedules(ctx context.Context, patientEmail string) ([]byte, error) {
	sched, err := s.GetSchedules(ctx, patientEmail)
	if err != nil {
		return nil, err
	}
	return WriteWorkbook(sched)
}

// WriteWorkbook lays out one sheet per schedule kind, keeping the order of
// the input slices.
func WriteWorkbook(sched *Schedules) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	medRows := make([][]interface{}, 0, len(sched.Medications))
	for _, m := range sched.Medications {
		medRows = append(medRows, []interface{}{m.ID, m.Name, m.Time})
	}
	testRows := make([][]interface{}, 0, len(sched.Tests))
	for _, t := range sched.Tests {
		testRows = append(testRows, []interface{}{t.ID, t.Name, t.Date})
	}
	surgeryRows := make([][]interface{}, 0, len(sched.Surgeries))
	for _, s := range sched.Surgeries {
		surgeryRows = append(surgeryRows, []interface{}{s.ID, s.Title, s.Date})
	}

	sheets := []struct {
		name    string
		headers []interface{}
		rows    [][]interface{}
	}{
		{sheetMedications, []interface{}{"ID", "Name", "Time"}, medRows},
		{sheetTests, []interface{}{"ID", "Name", "Date"}, testRows},
		{sheetSurgeries, []interface{}{"ID", "Title", "Date"}, surgeryRows},
	}

	for _, sh := range sheets {
		if _, err := f.NewSheet(sh.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh.name, sh.headers, sh.rows, headerStyle); err != nil {
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(sheetMedications); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "B", "B", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", "C", 18); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
