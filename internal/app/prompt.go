package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"klineDownloader/internal/ports"
	"klineDownloader/internal/selector"
)

// RandomKeyword selects sampled mode at the prompt.
const RandomKeyword = "random"

// PromptText is shown before reading the operator's answer.
const PromptText = "Enter a symbol (e.g. BTCUSD) or 'random' to download a random selection: "

// Choice is the operator's answer to the prompt.
type Choice struct {
	Random bool
	Symbol string // Set when Random is false
}

// ParseChoice interprets one answer line. Any casing of "random" selects
// sampled mode; anything else is a symbol.
func ParseChoice(line string) (Choice, error) {
	answer := strings.TrimSpace(line)
	if answer == "" {
		return Choice{}, fmt.Errorf("no symbol entered: %w", ports.ErrInvalidRequest)
	}
	if strings.EqualFold(answer, RandomKeyword) {
		return Choice{Random: true}, nil
	}
	return Choice{Symbol: answer}, nil
}

// Prompt writes PromptText to out and reads a single line from in.
func Prompt(out io.Writer, in io.Reader) (Choice, error) {
	if _, err := fmt.Fprint(out, PromptText); err != nil {
		return Choice{}, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return Choice{}, fmt.Errorf("reading answer: %w", err)
	}
	return ParseChoice(line)
}

// SymbolSampler draws symbols in sampled mode.
type SymbolSampler interface {
	Sample(ctx context.Context) ([]string, error)
}

// ResolveSymbols turns a choice into the symbols to download.
func ResolveSymbols(ctx context.Context, choice Choice, sampler SymbolSampler) ([]string, error) {
	if choice.Random {
		if sampler == nil {
			return nil, fmt.Errorf("random selection is not available: %w", ports.ErrConfigurationError)
		}
		return sampler.Sample(ctx)
	}
	return selector.Explicit(choice.Symbol)
}
