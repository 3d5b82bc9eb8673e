// Package export turns ranked rows into CSV files (plus optional XLSX twins and zip
// bundles) with fixed column lists and scope-encoding filenames.
package export

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/Veraticus/merchctl/internal/model"
)

// BOM is written before the header so spreadsheet tools detect UTF-8.
const BOM = "\uFEFF"

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Escape renders one cell. Line endings are normalized to \n; the value is quoted,
// with inner quotes doubled, when it contains a comma, a quote or a newline.
func Escape(v string) string {
	n := newlines.Replace(v)
	if strings.ContainsAny(n, ",\"\n") {
		return `"` + strings.ReplaceAll(n, `"`, `""`) + `"`
	}
	return n
}

// Encode writes the BOM, the header and one line per row. Lines are joined with \n and
// there is no trailing newline. Keys a row lacks become empty cells.
func Encode(w io.Writer, columns []string, rows []model.Row) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(BOM); err != nil {
		return err
	}
	writeLine(bw, columns, func(col string) string { return col })

	for _, r := range rows {
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		writeLine(bw, columns, r.Text)
	}
	return bw.Flush()
}

// Bytes returns the encoded CSV document.
func Bytes(columns []string, rows []model.Row) []byte {
	var buf bytes.Buffer
	_ = Encode(&buf, columns, rows)
	return buf.Bytes()
}

// writeLine errors are sticky in bufio.Writer and surface at Flush.
func writeLine(bw *bufio.Writer, columns []string, cell func(string) string) {
	for i, col := range columns {
		if i > 0 {
			_ = bw.WriteByte(',')
		}
		_, _ = bw.WriteString(Escape(cell(col)))
	}
}
