package clients

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/services"
)

const exportSheet = "Clients"

var exportHeader = []string{
	"Business Name",
	"Address",
	"Postcode",
	"Country",
	"Latitude",
	"Longitude",
	"Services",
}

// WriteWorkbook renders clients into an xlsx workbook, naming their
// services from svcs. Service ids missing from svcs are skipped.
func WriteWorkbook(w io.Writer, list []View, svcs []services.Service) error {
	names := make(map[string]string, len(svcs))
	for _, s := range svcs {
		names[s.ID.String()] = s.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "A", "B", 32); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	for i, c := range list {
		var svcNames []string
		for _, id := range c.ServiceIDs {
			if n, ok := names[id.String()]; ok {
				svcNames = append(svcNames, n)
			}
		}
		row := []any{c.BusinessName, c.Address, c.Postcode, c.Country, nil, nil, strings.Join(svcNames, ", ")}
		if c.Lat != nil {
			row[4] = *c.Lat
		}
		if c.Lng != nil {
			row[5] = *c.Lng
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
