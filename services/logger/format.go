package logsvc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trezcool/homeroom/core"
)

// formatArg renders LogFields as sorted key=value pairs.
func formatArg(arg interface{}) string {
	fields, ok := arg.(core.LogFields)
	if !ok {
		return fmt.Sprintf("%+v", arg)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(pairs, " ")
}
