package filereader

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Mode selects how a blob's bytes are decoded.
type Mode int

// Read modes. The codes are stable and the set is closed.
const (
	// ModeArrayBuffer returns the raw bytes.
	ModeArrayBuffer Mode = iota

	// ModeText decodes the bytes as text.
	ModeText

	// ModeBinaryString maps each byte to the code point of the same value.
	ModeBinaryString

	// ModeDataURL encodes the bytes as a base64 data URL.
	ModeDataURL

	numModes
)

// modeNames is indexed by Mode and holds the normalized lookup names.
var modeNames = [numModes]string{
	ModeArrayBuffer:  "arraybuffer",
	ModeText:         "text",
	ModeBinaryString: "binarystring",
	ModeDataURL:      "dataurl",
}

// modeSymbols is indexed by Mode and holds the names exposed by Modes.
var modeSymbols = [numModes]string{
	ModeArrayBuffer:  "ArrayBuffer",
	ModeText:         "Text",
	ModeBinaryString: "BinaryString",
	ModeDataURL:      "DataURL",
}

// Modes returns the symbolic mode names mapped to their codes.
// The map is a fresh copy on every call.
func Modes() map[string]Mode {
	m := make(map[string]Mode, numModes)
	for i, name := range modeSymbols {
		m[name] = Mode(i)
	}
	return m
}

// Valid reports whether m is one of the four read modes.
func (m Mode) Valid() bool {
	return m >= 0 && m < numModes
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// MarshalText encodes the mode as its lookup name.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidReadMode, int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText parses a mode name with the same rules as ParseMode.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// UnmarshalJSON accepts a mode name or a numeric code, resolved with
// ResolveMode. A JSON null leaves m unchanged.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var selector any
	if err := jsonCodec.Unmarshal(data, &selector); err != nil {
		return err
	}
	if selector == nil {
		return nil
	}
	parsed, err := ResolveMode(selector)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode resolves a mode name. Surrounding whitespace is ignored and the
// comparison is case-insensitive.
func ParseMode(name string) (Mode, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range modeNames {
		if candidate == normalized {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidReadMode, name)
}

// ResolveMode turns a selector into a Mode.
//
// An integer selector (any Go integer type, or a Mode) already within the
// valid code range is returned unchanged. Floats and json.Number count as
// integers when they have no fractional part, so codes decoded from JSON
// resolve too. A string selector is resolved with ParseMode. Every other
// selector fails with ErrInvalidReadMode.
func ResolveMode(selector any) (Mode, error) {
	var code int64
	switch v := selector.(type) {
	case string:
		return ParseMode(v)
	case Mode:
		code = int64(v)
	case int:
		code = int64(v)
	case int8:
		code = int64(v)
	case int16:
		code = int64(v)
	case int32:
		code = int64(v)
	case int64:
		code = v
	case uint:
		code = clampUint(uint64(v))
	case uint8:
		code = int64(v)
	case uint16:
		code = int64(v)
	case uint32:
		code = int64(v)
	case uint64:
		code = clampUint(v)
	case uintptr:
		code = clampUint(uint64(v))
	case float32:
		return resolveFloat(float64(v), selector)
	case float64:
		return resolveFloat(v, selector)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidReadMode, v.String())
		}
		return resolveFloat(f, selector)
	default:
		return 0, fmt.Errorf("%w: unsupported selector type %T", ErrInvalidReadMode, selector)
	}

	if code < 0 || code >= int64(numModes) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidReadMode, selector)
	}
	return Mode(code), nil
}

// clampUint keeps large unsigned values out of range without wrapping
// them into negatives that might alias a valid code.
func clampUint(v uint64) int64 {
	if v > uint64(numModes) {
		return int64(numModes)
	}
	return int64(v)
}

// resolveFloat accepts whole numbers in the code range. NaN fails the
// integral check and infinities fail the range check.
func resolveFloat(f float64, selector any) (Mode, error) {
	if f != math.Trunc(f) || f < 0 || f >= float64(numModes) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidReadMode, selector)
	}
	return Mode(f), nil
}
