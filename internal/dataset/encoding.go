package dataset

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// detectSampleBytes bounds how much of the file the statistical detector inspects.
const detectSampleBytes = 4 << 20

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
)

// DetectEncoding guesses the character set of raw bytes. A byte-order mark wins;
// otherwise the statistical detector's best candidate is used. Empty input and
// undetectable content fall back to UTF-8.
func DetectEncoding(data []byte) (charset string, confidence int) {
	switch {
	case bytes.HasPrefix(data, bomUTF32LE):
		return "UTF-32LE", 100
	case bytes.HasPrefix(data, bomUTF32BE):
		return "UTF-32BE", 100
	case bytes.HasPrefix(data, bomUTF8):
		return "UTF-8", 100
	case bytes.HasPrefix(data, bomUTF16LE):
		return "UTF-16LE", 100
	case bytes.HasPrefix(data, bomUTF16BE):
		return "UTF-16BE", 100
	}
	if len(data) == 0 {
		return "UTF-8", 0
	}
	sample := data
	if len(sample) > detectSampleBytes {
		sample = sample[:detectSampleBytes]
	}
	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || res == nil || res.Charset == "" {
		return "UTF-8", 0
	}
	return res.Charset, res.Confidence
}

// lookupEncoding resolves a charset label to a decoder.
func lookupEncoding(name string) (encoding.Encoding, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	switch label {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return unicode.UTF8BOM, nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf-16be", "utf-16":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case "utf-32le":
		return utf32.UTF32(utf32.LittleEndian, utf32.UseBOM), nil
	case "utf-32be", "utf-32":
		return utf32.UTF32(utf32.BigEndian, utf32.UseBOM), nil
	case "gb-18030":
		label = "gb18030"
	}
	if enc, err := htmlindex.Get(label); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
	return enc, nil
}

// decode converts data in the named charset to UTF-8 with any BOM removed.
func decode(data []byte, charset string) ([]byte, error) {
	enc, err := lookupEncoding(charset)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", charset, err)
	}
	return bytes.TrimPrefix(out, bomUTF8), nil
}
