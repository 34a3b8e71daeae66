// Package report renders a batch conversion report as an XLSX workbook: a
// summary sheet across all inputs plus one slide-inventory sheet per
// successfully extracted deck.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/godeck/extract"
)

const summarySheet = "Summary"

var summaryHeader = []string{"Source", "Status", "Sections", "Slides", "Images", "Error"}

var inventoryHeader = []string{"Order", "Section", "Title", "Layout", "Blocks", "Has Notes"}

// Write builds the workbook and saves it at path.
func Write(path string, results []extract.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("report: renaming summary sheet: %w", err)
	}
	writeRow(f, summarySheet, 1, summaryHeader)

	used := map[string]bool{summarySheet: true}
	for i, res := range results {
		row := i + 2
		source := filepath.Base(res.Path)
		if res.Err != nil {
			writeRow(f, summarySheet, row, []any{source, "failed", 0, 0, 0, res.Err.Error()})
			continue
		}
		p := res.Presentation
		writeRow(f, summarySheet, row, []any{
			source, "ok",
			len(p.Sections),
			p.Metadata.Stats.SlideCount,
			p.Metadata.Stats.ImageCount,
			"",
		})
		if err := writeInventory(f, used, res); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: saving %s: %w", path, err)
	}
	return nil
}

// writeInventory adds the per-deck sheet listing each slide.
func writeInventory(f *excelize.File, used map[string]bool, res extract.Result) error {
	p := res.Presentation
	name := sheetName(p.Metadata.ID, used)
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("report: creating sheet %q: %w", name, err)
	}
	writeRow(f, name, 1, inventoryHeader)

	row := 2
	for _, sec := range p.Sections {
		for _, sl := range sec.Slides {
			writeRow(f, name, row, []any{
				sl.Order, sec.Title, sl.Title, sl.Layout,
				len(sl.Content), sl.Notes != "",
			})
			row++
		}
	}
	return nil
}

func writeRow[T any](f *excelize.File, sheet string, row int, values []T) {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		f.SetCellValue(sheet, cell, v)
	}
}

// sheetName sanitizes a deck id into a unique, Excel-legal sheet name
// (31 chars, no []:*?/\ characters).
func sheetName(id string, used map[string]bool) string {
	r := strings.NewReplacer("[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", "\\", "_")
	name := r.Replace(id)
	if name == "" {
		name = "deck"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	base := name
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		if len(base)+len(suffix) > 31 {
			name = base[:31-len(suffix)] + suffix
		} else {
			name = base + suffix
		}
	}
	used[name] = true
	return name
}
