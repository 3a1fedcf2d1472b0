package il

import (
	"fmt"
	"strings"
)

// FormatOption configures Format.
type FormatOption func(*formatConfig)

type formatConfig struct {
	injected map[int]int
	marker   string
}

// WithInjected marks the spans in injected (offset to count) in the listing.
func WithInjected(injected map[int]int) FormatOption {
	return func(c *formatConfig) {
		c.injected = injected
	}
}

// WithMarker sets the prefix used for injected instructions. Default is "+".
func WithMarker(marker string) FormatOption {
	return func(c *formatConfig) {
		c.marker = marker
	}
}

// Format renders a body one instruction per line:
//
//	  0000  L1:  ldarg 1
//	+ 0001       brfalse L1
func Format(body []Instruction, opts ...FormatOption) string {
	cfg := formatConfig{marker: "+"}
	for _, opt := range opts {
		opt(&cfg)
	}

	marked := make([]bool, len(body))
	for offset, count := range cfg.injected {
		for i := offset; i < offset+count && i < len(body); i++ {
			if i >= 0 {
				marked[i] = true
			}
		}
	}
	blank := strings.Repeat(" ", len(cfg.marker))

	var sb strings.Builder
	for i, ins := range body {
		prefix := blank
		if marked[i] {
			prefix = cfg.marker
		}
		labels := ""
		if len(ins.Labels) > 0 {
			labels = labelList(ins.Labels) + ":"
		}
		fmt.Fprintf(&sb, "%s %04d  %-8s %s\n", prefix, i, labels, ins)
	}
	return sb.String()
}

// Disassemble renders a method header followed by its body.
func Disassemble(m *Method, opts ...FormatOption) string {
	var sb strings.Builder
	sb.WriteString(Signature(m))
	sb.WriteByte('\n')
	for i, l := range m.Locals {
		fmt.Fprintf(&sb, "  .local %d %s %s\n", i, l.Name, l.Type)
	}
	sb.WriteString(Format(m.Body, opts...))
	return sb.String()
}

// Signature renders "static Type.Name(a int, b string) Ret".
func Signature(m *Method) string {
	var sb strings.Builder
	if m.Static {
		sb.WriteString("static ")
	}
	sb.WriteString(m.FullName())
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	if m.Returns != "" {
		sb.WriteByte(' ')
		sb.WriteString(m.Returns)
	}
	return sb.String()
}
