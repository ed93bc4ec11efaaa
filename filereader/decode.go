package filereader

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// defaultDataURLType is used for data URLs of untyped blobs when sniffing is off.
const defaultDataURLType = "application/octet-stream"

// decode converts the bytes of a completed read into a Result for mode.
func decode(mode Mode, data []byte, blobType string, cfg readConfig) (*Result, error) {
	res := &Result{Mode: mode}
	switch mode {
	case ModeArrayBuffer:
		res.Buffer = data
	case ModeText:
		text, err := decodeText(data, cfg.encoding, blobType)
		if err != nil {
			return nil, err
		}
		res.Text = text
	case ModeBinaryString:
		res.Text = binaryString(data)
	case ModeDataURL:
		res.Text = dataURL(data, blobType, cfg.sniff)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidReadMode, int(mode))
	}
	return res, nil
}

// checkEncodingLabel reports whether label names a known encoding.
// The empty label is accepted and means "no override".
func checkEncodingLabel(label string) error {
	if label == "" {
		return nil
	}
	if _, err := htmlindex.Get(label); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}
	return nil
}

// decodeText decodes data as text. A byte-order mark wins; otherwise the
// explicit label, then the charset parameter of blobType, then UTF-8.
func decodeText(data []byte, label, blobType string) (string, error) {
	var fallback encoding.Encoding = unicode.UTF8
	switch {
	case label != "":
		enc, err := htmlindex.Get(label)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
		}
		fallback = enc
	case blobType != "":
		if enc, ok := charsetEncoding(blobType); ok {
			fallback = enc
		}
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(fallback.NewDecoder()), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// charsetEncoding looks up the charset parameter of a MIME type.
// Unknown or missing charsets report false.
func charsetEncoding(mediaType string) (encoding.Encoding, bool) {
	_, params, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return nil, false
	}
	charset := params["charset"]
	if charset == "" {
		return nil, false
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, false
	}
	return enc, true
}

// binaryString maps every byte to the code point of the same value.
func binaryString(data []byte) string {
	var b strings.Builder
	b.Grow(len(data) * 2)
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String()
}

// dataURL encodes data as a base64 data URL tagged with the blob's type.
func dataURL(data []byte, blobType string, sniff bool) string {
	mediaType := blobType
	if mediaType == "" {
		mediaType = defaultDataURLType
		if sniff {
			mediaType = strings.ReplaceAll(mimetype.Detect(data).String(), "; ", ";")
		}
	}

	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mediaType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
