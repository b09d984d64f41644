package main

import (
	"strconv"
	"strings"

	"cflow/internal/vm"
)

// parseValue reads a command-line literal: undefined, null, true, false,
// an integer, a float, or a string (optionally double-quoted).
func parseValue(s string) vm.Value {
	switch s {
	case "undefined":
		return vm.Undefined()
	case "null":
		return vm.Null()
	case "true":
		return vm.MakeBool(true)
	case "false":
		return vm.MakeBool(false)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return vm.MakeInt(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return vm.MakeFloat(f)
	}
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		if u, err := strconv.Unquote(s); err == nil {
			return vm.MakeString(u)
		}
	}
	return vm.MakeString(s)
}

func parseValues(list []string) []vm.Value {
	out := make([]vm.Value, len(list))
	for i, s := range list {
		out[i] = parseValue(s)
	}
	return out
}
