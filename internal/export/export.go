package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/Billy-Davies-2/hitchart-input/internal/models"
)

const (
	// FileName is the download name of every export
	FileName = "hitting_data.csv"
	// ContentType is the MIME type served with exports
	ContentType = "text/csv"
)

// ErrNoRows is returned when asked to encode nothing
var ErrNoRows = errors.New("no rows to encode")

// Encoder serializes export rows as CSV in a legacy text encoding
type Encoder struct {
	enc encoding.Encoding
}

// NewEncoder creates an encoder writing text with enc
func NewEncoder(enc encoding.Encoding) *Encoder {
	return &Encoder{enc: enc}
}

// Encode writes a header row of columns followed by one line per row.
// Columns missing from a row are written empty. Characters that the target
// encoding cannot represent fail the whole export.
func (e *Encoder) Encode(columns []string, rows []models.Row) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	var buf bytes.Buffer
	tw := transform.NewWriter(&buf, e.enc.NewEncoder())
	w := csv.NewWriter(tw)
	w.UseCRLF = true

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	line := make([]string, len(columns))
	for i, row := range rows {
		for j, col := range columns {
			line[j] = row[col]
		}
		if err := w.Write(line); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode csv: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
