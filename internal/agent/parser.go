// internal/agent/parser.go
package agent

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/farmahub/farmahub-backend/internal/inventory"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var columnAliases = map[string]string{
	"ean":        "ean",
	"codigo":     "ean",
	"código":     "ean",
	"qty":        "qty",
	"quantity":   "qty",
	"quantidade": "qty",
	"qtd":        "qty",
	"price":      "price",
	"preco":      "price",
	"preço":      "price",
}

// RowError describes a CSV line that was left out of the batch. Line is
// 1-based and counts the header.
type RowError struct {
	Line   int    `json:"line"`
	EAN    string `json:"ean,omitempty"`
	Reason string `json:"reason"`
}

// ParseCSV reads an ERP stock export. Columns are located by header name in
// any order. With delimiter 0 the separator is taken from the header line:
// ';' when it has more semicolons than commas, ',' otherwise.
func ParseCSV(r io.Reader, delimiter rune) ([]inventory.Item, []RowError, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	if delimiter == 0 {
		// A short file yields io.EOF along with whatever it holds.
		headerLine, err := br.Peek(br.Size())
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		delimiter = detectDelimiter(headerLine)
	}

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing header: %v", ErrInvalidSource, err)
	}

	columns := make(map[string]int)
	for i, name := range header {
		if canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = i
			}
		}
	}
	for _, required := range []string{"ean", "qty", "price"} {
		if _, ok := columns[required]; !ok {
			return nil, nil, fmt.Errorf("%w: missing %q column", ErrInvalidSource, required)
		}
	}

	items := make([]inventory.Item, 0)
	skipped := make([]RowError, 0)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped = append(skipped, RowError{Line: parseErr.Line, Reason: parseErr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}

		if blankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		raw := inventory.RawItem{
			EAN:   field(record, columns["ean"]),
			Qty:   field(record, columns["qty"]),
			Price: field(record, columns["price"]),
		}

		item, err := raw.Convert()
		if err == nil {
			err = utils.ValidateStruct(item)
			if err != nil {
				err = errors.New(utils.FirstValidationMessage(err))
			}
		}
		if err != nil {
			skipped = append(skipped, RowError{Line: line, EAN: raw.EANString(), Reason: err.Error()})
			continue
		}

		items = append(items, item)
	}

	return items, skipped, nil
}

func detectDelimiter(data []byte) rune {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	if bytes.Count(data, []byte{';'}) > bytes.Count(data, []byte{','}) {
		return ';'
	}
	return ','
}

// field returns nil for a missing cell so it is reported as empty.
func field(record []string, i int) interface{} {
	if i >= len(record) {
		return nil
	}
	return record[i]
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
