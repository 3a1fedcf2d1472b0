package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// removedGlobals load code from disk or strings, or bypass metatables.
var removedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"collectgarbage",
}

// Sandbox restricts a state to what extension scripts need.
type Sandbox struct {
	L      *lua.LState
	logger *zap.Logger
}

// NewSandbox creates a sandbox for L.
func NewSandbox(L *lua.LState, logger *zap.Logger) *Sandbox {
	return &Sandbox{L: L, logger: logger}
}

// Install removes unsafe globals and redirects print to the logger.
func (s *Sandbox) Install() {
	for _, name := range removedGlobals {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.L.SetGlobal("print", s.L.NewFunction(s.print))
}

func (s *Sandbox) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	s.logger.Info(strings.Join(parts, "\t"))
	return 0
}
