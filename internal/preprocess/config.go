package preprocess

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Errors returned by the preprocessing stages. Data-shape errors
// (unsorted index, unparseable timestamps) live in the models package.
var (
	ErrMissingColumn    = errors.New("missing required column")
	ErrInsufficientData = errors.New("insufficient data to interpolate")
	ErrInvalidConfig    = errors.New("invalid preprocessing config")
)

const (
	DefaultSensitivity  = 12.0
	DefaultWindow       = time.Hour
	DefaultWarningToken = "warning"
	DefaultErrorToken   = "error"
)

// OutlierConfig drives the rolling MAD detector.
// Window is the half-width: a point's window spans [t-Window, t+Window].
type OutlierConfig struct {
	Sensitivity float64
	Window      time.Duration
}

// DefaultOutlierConfig returns sensitivity 12 over a ±1h window.
func DefaultOutlierConfig() OutlierConfig {
	return OutlierConfig{Sensitivity: DefaultSensitivity, Window: DefaultWindow}
}

// WindowFromHours converts a fractional hour count into a window duration.
func WindowFromHours(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// Validate rejects negative or non-finite settings.
func (c OutlierConfig) Validate() error {
	if math.IsNaN(c.Sensitivity) || math.IsInf(c.Sensitivity, 0) || c.Sensitivity < 0 {
		return fmt.Errorf("%w: sensitivity must be a finite value >= 0, got %v", ErrInvalidConfig, c.Sensitivity)
	}
	if c.Window < 0 {
		return fmt.Errorf("%w: window must be >= 0, got %s", ErrInvalidConfig, c.Window)
	}
	return nil
}

// AlignerConfig holds the substrings that classify alarm messages.
// Matching is case-insensitive.
type AlignerConfig struct {
	WarningToken string
	ErrorToken   string
}

// DefaultAlignerConfig matches "warning" and "error".
func DefaultAlignerConfig() AlignerConfig {
	return AlignerConfig{WarningToken: DefaultWarningToken, ErrorToken: DefaultErrorToken}
}

// Validate rejects empty tokens, which would match every message.
func (c AlignerConfig) Validate() error {
	if strings.TrimSpace(c.WarningToken) == "" || strings.TrimSpace(c.ErrorToken) == "" {
		return fmt.Errorf("%w: alarm tokens must not be empty", ErrInvalidConfig)
	}
	return nil
}
