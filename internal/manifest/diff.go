package manifest

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between two manifests, both encoded with Marshal
// so key order does not produce noise.
func Diff(before, after map[string]any, fromName, toName string) (string, error) {
	a, err := Marshal(before)
	if err != nil {
		return "", fmt.Errorf("encode original manifest: %w", err)
	}
	b, err := Marshal(after)
	if err != nil {
		return "", fmt.Errorf("encode rewritten manifest: %w", err)
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}
