package sink

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
)

// SheetName is the worksheet WriteXLSX fills.
const SheetName = "campaigns"

// WriteXLSX writes records to a single-sheet workbook at path, header row
// first. Numeric values become numeric cells. With no records it returns
// ErrNoData and does not touch path.
func WriteXLSX(path string, records []campaign.Record) error {
	if len(records) == 0 {
		return ErrNoData
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx export: add sheet")
	}

	header := records[0].Names()
	hr := sheet.AddRow()
	for _, name := range header {
		hr.AddCell().SetString(name)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		for _, name := range header {
			v, _ := rec.Get(name)
			setCell(row.AddCell(), v)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "xlsx export: save")
	}
	return nil
}

func setCell(cell *xlsx.Cell, v any) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			cell.SetInt64(i)
			return
		}
		if f, err := t.Float64(); err == nil {
			cell.SetFloat(f)
			return
		}
		cell.SetString(t.String())
	case float64:
		cell.SetFloat(t)
	case int:
		cell.SetInt(t)
	default:
		cell.SetString(campaign.FormatValue(v))
	}
}
