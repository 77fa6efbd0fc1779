// Package export renders grouped statistics as spreadsheets.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/mahrfyi/internal/service"
)

const (
	GroupsSheet = "Groups"
	AboutSheet  = "About"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var groupHeaders = []any{
	"Group", "Count", "Share %", "Mean", "Median", "Std Dev", "Min", "Max",
	"P25", "P50", "P75", "P90", "P95", "Most Common Asset",
}

// WriteGroups writes one row per group to an XLSX workbook on w. Values are
// reported in the currencies they were submitted in.
func WriteGroups(w io.Writer, key service.GroupKey, groups []service.Group, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", GroupsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(GroupsSheet, "A1", &groupHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetColWidth(GroupsSheet, "A", "A", 28); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(GroupsSheet, "B", "N", 14); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	for i, g := range groups {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		s := g.Summary
		row := []any{
			g.Key, g.Count, g.Share, s.Mean, s.Median, s.StdDev, s.Min, s.Max,
			s.Percentiles.P25, s.Percentiles.P50, s.Percentiles.P75, s.Percentiles.P90, s.Percentiles.P95,
			string(g.TopAssetType),
		}
		if err := f.SetSheetRow(GroupsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write group %q: %w", g.Key, err)
		}
	}

	if _, err := f.NewSheet(AboutSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	about := [][]any{
		{"Grouped by", string(key)},
		{"Groups", len(groups)},
		{"Generated at", generatedAt.UTC().Format(time.RFC3339)},
	}
	for i, row := range about {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(AboutSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write about sheet: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
