package manager

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	failColor   = color.New(color.FgRed, color.Bold)
)

func (m *Manager) printf(format string, args ...any) {
	fmt.Fprintf(m.out(), format+"\n", args...)
}
