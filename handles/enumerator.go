package handles

import (
	"errors"
	"fmt"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/ntapi"
)

const (
	DefaultInitialBufferSize = 0x10000
	DefaultMaxAttempts       = 8
)

type EnumeratorConfig struct {
	// InitialBufferSize is the first guess for the handle table size.
	InitialBufferSize int

	// MaxAttempts bounds the number of queries made by one EnumerateAll.
	MaxAttempts int

	Layout ntapi.Layout
}

func DefaultEnumeratorConfig() EnumeratorConfig {
	return EnumeratorConfig{
		InitialBufferSize: DefaultInitialBufferSize,
		MaxAttempts:       DefaultMaxAttempts,
		Layout:            ntapi.NativeLayout(),
	}
}

// Enumerator reads the system wide handle table.
type Enumerator struct {
	sys    ntapi.System
	config EnumeratorConfig
}

func NewEnumerator(sys ntapi.System, config EnumeratorConfig) *Enumerator {
	defaults := DefaultEnumeratorConfig()

	if config.InitialBufferSize <= 0 {
		config.InitialBufferSize = defaults.InitialBufferSize
	}

	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}

	if config.Layout.PointerSize == 0 {
		config.Layout = defaults.Layout
	}

	return &Enumerator{sys: sys, config: config}
}

// EnumerateAll returns every open handle in the system.
func (e *Enumerator) EnumerateAll() ([]SystemHandleRecord, error) {
	buf, err := negotiate("system handles", e.config.InitialBufferSize, e.config.MaxAttempts,
		func(buf []byte) (int, error) {
			return e.sys.QuerySystemHandles(buf)
		})
	if err != nil {
		return nil, err
	}

	records, err := DecodeHandleTable(buf, e.config.Layout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode handle table: %w", err)
	}

	log.Debugf("Enumerated %d system handles", len(records))
	return records, nil
}

// negotiate runs query against a buffer of size bytes, reallocating to exactly
// the size the OS reports on every length mismatch. When the OS does not report
// a size the buffer is doubled. It gives up after maxAttempts queries.
func negotiate(what string, size int, maxAttempts int, query func([]byte) (int, error)) ([]byte, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		buf := make([]byte, size)

		n, err := query(buf)
		if err == nil {
			if n <= 0 || n > len(buf) {
				n = len(buf)
			}

			return buf[:n], nil
		}

		var mismatch *ntapi.LengthMismatchError
		if !errors.As(err, &mismatch) {
			return nil, err
		}

		if mismatch.Required > 0 {
			size = mismatch.Required
		} else {
			size *= 2
		}

		log.Debugf("Query for %s needs %d bytes (attempt %d/%d)", what, size, attempt, maxAttempts)
	}

	return nil, fmt.Errorf("%w: %s after %d attempts", ErrSizeNegotiationExhausted, what, maxAttempts)
}
