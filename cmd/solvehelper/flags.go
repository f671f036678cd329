package main

import (
	"fmt"
	"strconv"
	"strings"
)

// intFlag removes "--name N" or "--name=N" from args and returns N, or def
// when the flag is absent.
func intFlag(args []string, name string, def int) (int, []string, error) {
	rest := make([]string, 0, len(args))
	val := def
	for i := 0; i < len(args); i++ {
		a := args[i]
		var raw string
		switch {
		case a == name:
			if i+1 >= len(args) {
				return 0, nil, fmt.Errorf("%s needs a value", name)
			}
			i++
			raw = args[i]
		case strings.HasPrefix(a, name+"="):
			raw = strings.TrimPrefix(a, name+"=")
		default:
			rest = append(rest, a)
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, nil, fmt.Errorf("%s must be a non-negative integer, got %q", name, raw)
		}
		val = n
	}
	return val, rest, nil
}
