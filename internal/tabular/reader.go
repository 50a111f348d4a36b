package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/skucast/skucast/internal/domain"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// oleMagic is the OLE compound-file signature that opens legacy binary
// .xls workbooks, which the OOXML parser cannot read.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// fallbackEncodings are tried in order when the payload is not valid
// UTF-8, mirroring the common spreadsheet-export encodings.
var fallbackEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"latin-1", charmap.ISO8859_1},
	{"iso-8859-1", charmap.ISO8859_1},
	{"windows-1252", charmap.Windows1252},
}

// Read decodes raw bytes into a dataset based on the file extension.
// It returns domain.ErrUnsupportedFormat for unrecognized extensions and
// domain.ErrDecodeFailed when no usable encoding or delimiter produced a
// table with a header row. There is no partial-success mode.
func Read(fileName string, payload []byte) (Dataset, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return readDelimited(payload, ',')
	case ".txt":
		// Tab-delimited first, comma on any parse failure.
		ds, err := readDelimited(payload, '\t')
		if err != nil {
			return readDelimited(payload, ',')
		}
		return ds, nil
	case ".xlsx", ".xls":
		// .xls files exported by modern tools are usually OOXML with a
		// legacy extension; genuine binary workbooks are rejected up
		// front rather than surfacing as a decode failure.
		if bytes.HasPrefix(payload, oleMagic) {
			return Dataset{}, fmt.Errorf("%w: legacy binary .xls, save as .xlsx or .csv", domain.ErrUnsupportedFormat)
		}
		return readExcel(payload)
	default:
		return Dataset{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}
}

func readDelimited(payload []byte, delimiter rune) (Dataset, error) {
	text, err := decodePayload(payload)
	if err != nil {
		return Dataset{}, err
	}

	reader := bufio.NewReader(strings.NewReader(text))
	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}

	return fromRecords(records)
}

func readExcel(payload []byte) (Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Dataset{}, fmt.Errorf("%w: workbook has no sheets", domain.ErrDecodeFailed)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}

	return fromRecords(rows)
}

// decodePayload strips a UTF-8 BOM and falls back through legacy
// single-byte encodings when the payload is not valid UTF-8.
func decodePayload(payload []byte) (string, error) {
	payload = bytes.TrimPrefix(payload, byteOrderMark)
	if utf8.Valid(payload) {
		return string(payload), nil
	}
	for _, candidate := range fallbackEncodings {
		decoded, err := candidate.enc.NewDecoder().Bytes(payload)
		if err != nil {
			continue
		}
		return string(decoded), nil
	}
	return "", fmt.Errorf("%w: no usable encoding", domain.ErrDecodeFailed)
}

// fromRecords converts raw string records into a dataset. The first
// non-empty row becomes the header; empty cells become nulls; short rows
// are padded with nulls and long rows truncated to the header width.
func fromRecords(records [][]string) (Dataset, error) {
	var headerRow []string
	var dataRows [][]string

	for _, row := range records {
		if isEmptyRow(row) {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, row)
	}

	if headerRow == nil {
		return Dataset{}, fmt.Errorf("%w: no header row detected", domain.ErrDecodeFailed)
	}

	columns := make([]Column, len(headerRow))
	for i, name := range headerRow {
		columns[i] = Column{
			Name:   name,
			Values: make([]Value, len(dataRows)),
		}
	}

	for rowIdx, row := range dataRows {
		for colIdx := range columns {
			if colIdx >= len(row) {
				columns[colIdx].Values[rowIdx] = Null()
				continue
			}
			cell := strings.TrimSpace(row[colIdx])
			if cell == "" {
				columns[colIdx].Values[rowIdx] = Null()
				continue
			}
			columns[colIdx].Values[rowIdx] = String(cell)
		}
	}

	return Dataset{Columns: columns}, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
