// Package valuation models AI price estimates for marketplace items.
package valuation

import (
	"fmt"
	"strings"

	"github.com/magnus-flipper/magnus/internal/domain"
)

// charsPerToken approximates tokenizer density for budget estimates.
const charsPerToken = 4

// Item is the listing being appraised.
type Item struct {
	Title       string
	Description string
	Condition   string
	Marketplace string
	AskPrice    float64
}

// Validate checks the item carries enough data to appraise.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidItem)
	}
	if i.AskPrice < 0 {
		return fmt.Errorf("%w: ask_price must not be negative", domain.ErrInvalidItem)
	}
	return nil
}

// Estimate is the model's appraisal.
type Estimate struct {
	EstimatedValue float64 `json:"estimated_value"`
	Confidence     float64 `json:"confidence_score"`
	PriceMin       float64 `json:"price_min"`
	PriceMax       float64 `json:"price_max"`
	Rationale      string  `json:"rationale"`
	TokensUsed     int     `json:"-"`
}

// SystemPrompt instructs the model on the response contract.
const SystemPrompt = "You are a resale pricing analyst. Reply with a JSON object containing " +
	"estimated_value, confidence_score (0..1), price_min, price_max and a short rationale. " +
	"Prices are in USD."

// Prompt renders the user message for an item.
func Prompt(i Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", i.Title)
	if i.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", i.Description)
	}
	if i.Condition != "" {
		fmt.Fprintf(&b, "Condition: %s\n", i.Condition)
	}
	if i.Marketplace != "" {
		fmt.Fprintf(&b, "Marketplace: %s\n", i.Marketplace)
	}
	if i.AskPrice > 0 {
		fmt.Fprintf(&b, "Asking price: %.2f\n", i.AskPrice)
	}
	return b.String()
}

// EstimateTokens approximates prompt plus completion tokens for budget accounting.
func EstimateTokens(i Item, maxCompletion int) int64 {
	chars := len(SystemPrompt) + len(Prompt(i))
	prompt := (chars + charsPerToken - 1) / charsPerToken
	return int64(prompt + maxCompletion)
}
