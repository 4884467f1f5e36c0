package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Options controls how an input file is read.
type Options struct {
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Encoding overrides statistical detection when set (e.g. "windows-1252").
	Encoding string
	// Sheet selects the worksheet of an .xlsx input; empty means the first sheet.
	Sheet string
	// NAValues replaces the default missing-value tokens when non-nil.
	NAValues []string
}

// Load reads path, detects its byte encoding, and parses it into a Dataset.
// Every failure is returned as a *LoadError.
func Load(path string, opt Options) (*Dataset, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadXLSX(path, opt)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open", Err: err}
	}
	charset, confidence := opt.Encoding, 100
	if charset == "" {
		charset, confidence = DetectEncoding(raw)
	}
	text, err := decode(raw, charset)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "decode", Err: err}
	}
	header, records, err := parseDelimited(text, delimiterFor(path, opt.Delimiter))
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Op: "parse", Err: err}
	}
	return &Dataset{
		Name:               filepath.Base(path),
		Path:               path,
		Encoding:           charset,
		EncodingConfidence: confidence,
		Columns:            build(header, records, naSet(opt.NAValues)),
		Rows:               len(records),
	}, nil
}

// parseDelimited reads a header row plus data rows. Every row must have exactly
// as many fields as the header.
func parseDelimited(text []byte, delim rune) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = 0

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &LoadError{Op: "parse", Err: errors.New("empty file: no header row")}
		}
		return nil, nil, parseErr(err)
	}
	header = append([]string(nil), header...)

	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, parseErr(err)
		}
		records = append(records, rec)
	}
	return header, records, nil
}

func parseErr(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &LoadError{Op: "parse", Line: pe.Line, Err: pe.Err}
	}
	return &LoadError{Op: "parse", Err: fmt.Errorf("read csv: %w", err)}
}

func delimiterFor(path string, delim rune) rune {
	if delim != 0 {
		return delim
	}
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
