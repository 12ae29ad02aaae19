package sink

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
)

// CSVOptions configures WriteCSV.
type CSVOptions struct {
	// BOM prefixes the file with a UTF-8 byte order mark so spreadsheet
	// applications detect the encoding.
	BOM bool
}

// WriteCSV writes records to path as comma-delimited UTF-8 with CRLF line
// endings and a header row taken from the first record. An existing file is truncated. With no
// records it returns ErrNoData and does not touch path.
func WriteCSV(path string, records []campaign.Record, opts CSVOptions) error {
	if len(records) == 0 {
		return ErrNoData
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "csv export: create file")
	}
	defer f.Close() //nolint:errcheck

	var out io.Writer = f
	var bom *transform.Writer
	if opts.BOM {
		bom = transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
		out = bom
	}

	if err := writeCSV(out, records); err != nil {
		return err
	}

	if bom != nil {
		if err := bom.Close(); err != nil {
			return eris.Wrap(err, "csv export: flush bom writer")
		}
	}
	return eris.Wrap(f.Close(), "csv export: close file")
}

func writeCSV(out io.Writer, records []campaign.Record) error {
	w := csv.NewWriter(out)
	w.UseCRLF = true

	header := records[0].Names()
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "csv export: write header")
	}

	for _, rec := range records {
		if err := w.Write(rec.Cells(header)); err != nil {
			return eris.Wrap(err, "csv export: write row")
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "csv export: flush")
}
