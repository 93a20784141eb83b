// Package transfer converts account records to and from the CSV format
// used by export and import.
package transfer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"pm-go/internal/pm"
)

// Columns is the CSV header, in order.
var Columns = []string{"name", "url", "username", "password", "notes"}

// ErrInvalidCSV is returned when an import file has no recognizable header.
var ErrInvalidCSV = errors.New("the file is invalid or corrupted")

// delimiterPattern matches the candidates for the field separator. The first
// match in the header line wins.
var delimiterPattern = regexp.MustCompile(`[,;\t\s|]`)

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// Export writes records as comma-separated CSV with a header row. Ids and
// usedAt are not exported. Line breaks in notes become spaces so every record
// stays on one line.
func Export(w io.Writer, records []pm.AccountRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		row := []string{r.Name, r.URL, r.Username, r.Password, lineBreaks.Replace(r.Notes)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// Import parses a CSV export. The delimiter is detected from the header,
// which must read name,url,username,password,notes with that delimiter.
// Missing trailing fields are left empty and surrounding whitespace is
// trimmed.
func Import(r io.Reader) ([]pm.RecordInput, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))

	delim := delimiterPattern.FindString(header)
	if delim == "" || header != strings.Join(Columns, delim) {
		return nil, ErrInvalidCSV
	}

	cr := csv.NewReader(br)
	cr.Comma = []rune(delim)[0]
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = cr.Comma != ' ' && cr.Comma != '\t'

	var out []pm.RecordInput
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
		}
		if isBlank(row) {
			continue
		}
		out = append(out, pm.RecordInput{
			Name:     field(row, 0),
			URL:      field(row, 1),
			Username: field(row, 2),
			Password: field(row, 3),
			Notes:    field(row, 4),
		})
	}
	return out, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
