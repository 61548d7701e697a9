package apihttp

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	billing "estate-billing/internal/billing/domain"
)

// ExportSummariesCSVHandler serves summary CSV exports for a period.
type ExportSummariesCSVHandler struct {
	reader SummaryReader
}

// NewExportSummariesCSVHandler constructs a ExportSummariesCSVHandler.
func NewExportSummariesCSVHandler(reader SummaryReader) *ExportSummariesCSVHandler {
	return &ExportSummariesCSVHandler{reader: reader}
}

// ServeHTTP handles GET /api/v1/exports/summaries.csv.
func (h *ExportSummariesCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reader == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	period, err := parsePeriodQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summaries, err := h.reader.ListByPeriod(r.Context(), period)
	if err != nil {
		http.Error(w, "query summaries error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="summaries-%s.csv"`, period.Key()))
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"estate_code",
		"estate_name",
		"month",
		"year",
		"total_payments",
		"confirmed_payments",
		"pending_payments",
		"total_amount_collected",
		"total_commissions",
		"pending_commissions",
		"approved_commissions",
		"paid_commissions",
		"total_customers",
		"active_allocations",
		"completed_allocations",
		"outstanding_balance",
		"collection_rate",
	})
	for _, row := range summaries {
		_ = writer.Write([]string{
			row.EstateCode,
			row.EstateName,
			formatInt(row.Month),
			formatInt(row.Year),
			formatInt(row.TotalPayments),
			formatInt(row.ConfirmedPayments),
			formatInt(row.PendingPayments),
			formatFloat(row.TotalAmountCollected),
			formatFloat(row.TotalCommissions),
			formatFloat(row.PendingCommissions),
			formatFloat(row.ApprovedCommissions),
			formatFloat(row.PaidCommissions),
			formatInt(row.TotalCustomers),
			formatInt(row.ActiveAllocations),
			formatInt(row.CompletedAllocations),
			formatFloat(row.OutstandingBalance),
			formatFloat(row.CollectionRate),
		})
	}
	writer.Flush()
}

// ExportSummariesXLSXHandler serves summary XLSX exports for a period.
type ExportSummariesXLSXHandler struct {
	reader SummaryReader
}

// NewExportSummariesXLSXHandler constructs a ExportSummariesXLSXHandler.
func NewExportSummariesXLSXHandler(reader SummaryReader) *ExportSummariesXLSXHandler {
	return &ExportSummariesXLSXHandler{reader: reader}
}

// ServeHTTP handles GET /api/v1/exports/summaries.xlsx.
func (h *ExportSummariesXLSXHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reader == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	period, err := parsePeriodQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summaries, err := h.reader.ListByPeriod(r.Context(), period)
	if err != nil {
		http.Error(w, "query summaries error", http.StatusInternalServerError)
		return
	}

	data, err := BuildSummariesXLSX(period, summaries)
	if err != nil {
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="summaries-%s.xlsx"`, period.Key()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// BuildSummariesXLSX renders a workbook with a period overview sheet and
// one estate per row on the detail sheet.
func BuildSummariesXLSX(period billing.Period, summaries []billing.EstateSummary) ([]byte, error) {
	f := excelize.NewFile()
	overviewSheet := "overview"
	estatesSheet := "estates"
	f.SetSheetName("Sheet1", overviewSheet)
	if _, err := f.NewSheet(estatesSheet); err != nil {
		return nil, err
	}

	var totalCollected, totalCommissions, totalOutstanding float64
	for _, s := range summaries {
		totalCollected += s.TotalAmountCollected
		totalCommissions += s.TotalCommissions
		totalOutstanding += s.OutstandingBalance
	}

	_ = f.SetCellValue(overviewSheet, "A1", "Billing Summary Report")
	_ = f.SetCellValue(overviewSheet, "A3", "Period")
	_ = f.SetCellValue(overviewSheet, "B3", period.Key())
	_ = f.SetCellValue(overviewSheet, "A4", "Estates")
	_ = f.SetCellValue(overviewSheet, "B4", len(summaries))
	_ = f.SetCellValue(overviewSheet, "A5", "Total Collected")
	_ = f.SetCellValue(overviewSheet, "B5", totalCollected)
	_ = f.SetCellValue(overviewSheet, "A6", "Total Commissions")
	_ = f.SetCellValue(overviewSheet, "B6", totalCommissions)
	_ = f.SetCellValue(overviewSheet, "A7", "Outstanding Balance")
	_ = f.SetCellValue(overviewSheet, "B7", totalOutstanding)

	headers := []string{
		"Estate Code",
		"Estate Name",
		"Total Payments",
		"Confirmed",
		"Pending",
		"Amount Collected",
		"Total Commissions",
		"Customers",
		"Active Allocations",
		"Completed Allocations",
		"Outstanding Balance",
		"Collection Rate (%)",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(estatesSheet, cell, header)
	}
	for i, s := range summaries {
		row := i + 2
		values := []any{
			s.EstateCode,
			s.EstateName,
			s.TotalPayments,
			s.ConfirmedPayments,
			s.PendingPayments,
			s.TotalAmountCollected,
			s.TotalCommissions,
			s.TotalCustomers,
			s.ActiveAllocations,
			s.CompletedAllocations,
			s.OutstandingBalance,
			s.CollectionRate,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(estatesSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatInt(value int) string {
	return strconv.Itoa(value)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
