package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"dbcheck/internal/check"
)

var (
	okFormat    = color.New(color.FgGreen, color.Bold).SprintFunc()
	failFormat  = color.New(color.FgRed, color.Bold).SprintFunc()
	mutedFormat = color.New(color.FgHiBlack).SprintFunc()
	boldFormat  = color.New(color.FgHiWhite).SprintFunc()
)

// line is one row of CLI output.
type line struct {
	Target  string       `json:"target"`
	Adapter string       `json:"adapter,omitempty"`
	Result  check.Result `json:"result"`
}

func printLine(w io.Writer, jsonOutput bool, l line) {
	if jsonOutput {
		_ = json.NewEncoder(w).Encode(l)
		return
	}
	mark := okFormat("✓")
	if !l.Result.Success {
		mark = failFormat("✗")
	}
	label := l.Target
	if l.Adapter != "" {
		label = fmt.Sprintf("%-16s %s", l.Adapter, mutedFormat(l.Target))
	}
	fmt.Fprintf(w, "%s %s\n  %s\n", mark, boldFormat(label), l.Result.Message)
}
