package commands

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef returns the single task reference in args: a 1-based number
// in the listed order, or a task id. Ids starting with "-" must follow "--".
func ParseTaskRef(args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", ErrTaskRefRequired
	}
	if len(args) > 1 {
		return "", fmt.Errorf("unexpected argument: %s", args[1])
	}
	return strings.TrimSpace(args[0]), nil
}
