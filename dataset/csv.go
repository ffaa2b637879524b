package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// missingMarkers are the cell spellings read as missing values.
var missingMarkers = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// Load parses CSV input with a header row into a Table. The delimiter is
// sniffed among comma, semicolon and tab, and input that is not valid UTF-8
// is decoded as Windows-1252.
func Load(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read input: %v", ErrParse, err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrParse)
	}
	if !utf8.Valid(raw) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decode input: %v", ErrParse, err)
		}
		raw = decoded
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = sniffDelimiter(raw)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrParse, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cells := make([][]string, len(header))
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrParse, line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" && len(header) > 1 {
			continue
		}
		if len(record) > len(header) {
			return nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d", ErrParse, line, len(header), len(record))
		}
		for i := range header {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			cells[i] = append(cells[i], value)
		}
	}

	columns := make([]*Column, len(header))
	for i, name := range header {
		columns[i] = inferColumn(name, cells[i])
	}
	return NewTable(columns...)
}

// inferColumn makes a numeric column when every present cell parses as a float.
func inferColumn(name string, cells []string) *Column {
	missing := make([]bool, len(cells))
	numbers := make([]float64, len(cells))
	numeric := true
	for i, cell := range cells {
		trimmed := strings.TrimSpace(cell)
		if missingMarkers[trimmed] {
			missing[i] = true
			continue
		}
		if !numeric {
			continue
		}
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			numeric = false
			continue
		}
		numbers[i] = v
	}
	if numeric {
		return &Column{Name: name, Kind: Numeric, Numbers: numbers, Missing: missing}
	}
	values := make([]string, len(cells))
	for i, cell := range cells {
		if !missing[i] {
			values[i] = cell
		}
	}
	return &Column{Name: name, Kind: Categorical, Strings: values, Missing: missing}
}

// sniffDelimiter picks the most frequent candidate delimiter on the first line.
func sniffDelimiter(raw []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return ','
	}
	first := scanner.Text()
	best, bestCount := ',', strings.Count(first, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(first, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// WriteCSV writes the table back as comma separated text with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	row := make([]string, t.NumColumns())
	for i := 0; i < t.Rows(); i++ {
		for j, col := range t.Columns() {
			row[j] = col.Text(i)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
