// Package win describes a completed flip announced to notification channels.
package win

import (
	"fmt"
	"strings"

	"github.com/magnus-flipper/magnus/internal/domain"
)

// Win is a completed buy/sell pair.
type Win struct {
	Title    string
	Buy      float64
	Sell     float64
	YieldPct float64
	URL      string // accepted for the record, not relayed
}

// Validate checks required fields.
func (w Win) Validate() error {
	if strings.TrimSpace(w.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidWin)
	}
	if w.Buy < 0 || w.Sell < 0 {
		return fmt.Errorf("%w: prices must not be negative", domain.ErrInvalidWin)
	}
	return nil
}

// Message renders the announcement text shared by every channel.
func (w Win) Message() string {
	return fmt.Sprintf("🏆 Win: %s\nBuy $%.2f → Sell $%.2f (Yield %.1f%%)", w.Title, w.Buy, w.Sell, w.YieldPct)
}
