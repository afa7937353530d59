// Package reports renders monitoring dashboard snapshots as downloadable
// XLSX and PDF documents.
package reports

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	application "maintenance-cloud/internal/monitoring/application"
	monitoring "maintenance-cloud/internal/monitoring/domain"
)

// BuildDashboardPDF renders a minimal PDF for a dashboard snapshot.
func BuildDashboardPDF(dashboard application.Dashboard) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Equipment Monitoring Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", dashboard.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Monitored Equipment: %d", dashboard.MonitoredCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Average Health: %.1f", dashboard.AverageHealth))
	pdf.Ln(5)

	for _, status := range sortedStatusKeys(dashboard) {
		pdf.Cell(0, 6, fmt.Sprintf("Status %s: %d", status, dashboard.StatusCounts[status]))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	// Alerts table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(25, 6, "Equipment", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Title", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, alert := range dashboard.ActiveAlerts {
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", alert.EquipmentID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, string(alert.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(alert.Severity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(95, 6, alert.Title, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildDashboardXLSX renders a minimal XLSX for a dashboard snapshot.
func BuildDashboardXLSX(dashboard application.Dashboard) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	alertsSheet := "alerts"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(alertsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Equipment Monitoring Report")
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", dashboard.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Monitored Equipment")
	_ = f.SetCellValue(summarySheet, "B4", dashboard.MonitoredCount)
	_ = f.SetCellValue(summarySheet, "A5", "Average Health")
	_ = f.SetCellValue(summarySheet, "B5", dashboard.AverageHealth)

	row := 7
	for _, status := range sortedStatusKeys(dashboard) {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("Status %s", status))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), dashboard.StatusCounts[status])
		row++
	}

	_ = f.SetCellValue(alertsSheet, "A1", "Equipment")
	_ = f.SetCellValue(alertsSheet, "B1", "Type")
	_ = f.SetCellValue(alertsSheet, "C1", "Severity")
	_ = f.SetCellValue(alertsSheet, "D1", "Title")
	_ = f.SetCellValue(alertsSheet, "E1", "Created")
	for i, alert := range dashboard.ActiveAlerts {
		r := i + 2
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("A%d", r), alert.EquipmentID)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("B%d", r), string(alert.Type))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("C%d", r), string(alert.Severity))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("D%d", r), alert.Title)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("E%d", r), alert.CreatedAt.Format(time.RFC3339))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedStatusKeys(dashboard application.Dashboard) []monitoring.Status {
	keys := make([]monitoring.Status, 0, len(dashboard.StatusCounts))
	for status := range dashboard.StatusCounts {
		keys = append(keys, status)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
