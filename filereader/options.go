package filereader

import (
	"errors"
	"fmt"
	"log/slog"
)

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

// readerConfig holds the resolved configuration for a Reader.
type readerConfig struct {
	logger   *slog.Logger
	encoding string
	sniff    bool
}

// readConfig holds the configuration for a single read. It starts as a copy
// of the reader's configuration.
type readConfig struct {
	encoding string
	sniff    bool
}

// Option configures reader construction or a single read.
// Options implement methods for the call sites they support.
// Using an option where it does not apply returns an error.
type Option interface {
	applyReader(*readerConfig) error
	applyRead(*readConfig) error
}

// ErrOptionNotValidForRead indicates an option was passed to Read
// that only applies to NewReader.
var ErrOptionNotValidForRead = errors.New("option not valid for read")

// loggerOption implements Option for WithLogger (reader-only).
type loggerOption struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for dispatch and settlement records.
// If nil, a discard logger is used (default behavior).
// This option is only valid for NewReader.
func WithLogger(logger *slog.Logger) Option {
	return &loggerOption{logger: logger}
}

func (o *loggerOption) applyReader(cfg *readerConfig) error {
	cfg.logger = o.logger
	return nil
}

func (o *loggerOption) applyRead(*readConfig) error {
	return fmt.Errorf("WithLogger: %w", ErrOptionNotValidForRead)
}

// encodingOption implements Option for WithEncoding.
type encodingOption struct {
	label string
}

// WithEncoding sets the fallback encoding for text reads, by WHATWG label
// (for example "utf-8", "windows-1252", "shift_jis").
// On NewReader it sets the default; on Read it overrides it for one read.
// A byte-order mark in the content always takes precedence.
// Default: "" (the blob's charset parameter, else UTF-8).
func WithEncoding(label string) Option {
	return &encodingOption{label: label}
}

func (o *encodingOption) applyReader(cfg *readerConfig) error {
	if err := checkEncodingLabel(o.label); err != nil {
		return fmt.Errorf("WithEncoding: %w", err)
	}
	cfg.encoding = o.label
	return nil
}

func (o *encodingOption) applyRead(cfg *readConfig) error {
	if err := checkEncodingLabel(o.label); err != nil {
		return fmt.Errorf("WithEncoding: %w", err)
	}
	cfg.encoding = o.label
	return nil
}

// sniffOption implements Option for WithContentSniffing.
type sniffOption struct {
	enabled bool
}

// WithContentSniffing controls MIME detection for data URL reads of blobs
// without a type. When enabled, the type is detected from the content;
// otherwise "application/octet-stream" is used.
// Default: false.
func WithContentSniffing(enabled bool) Option {
	return &sniffOption{enabled: enabled}
}

func (o *sniffOption) applyReader(cfg *readerConfig) error {
	cfg.sniff = o.enabled
	return nil
}

func (o *sniffOption) applyRead(cfg *readConfig) error {
	cfg.sniff = o.enabled
	return nil
}
