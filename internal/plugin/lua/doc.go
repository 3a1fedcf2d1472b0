// Package lua wraps gopher-lua for extension scripts.
//
// A State is a sandboxed interpreter: only the base, table, string and math
// libraries are opened, file and code loading globals are removed, and print
// goes to the script's logger. Every call runs under a deadline; a script
// that loops forever fails with ErrExecutionTimeout instead of hanging the
// host.
//
// The Bridge converts between Go and Lua values, including host objects,
// which are exposed as plain tables of their fields.
//
// A State is not safe for concurrent use.
package lua
