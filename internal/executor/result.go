package executor

import (
	"fmt"

	"github.com/hanpama/gatewaycore/internal/gqlerror"
)

// Path is a response-path element list (field names and list indices),
// used both for located errors and for tracking where a partition's raw
// result lands in the response tree.
type Path []any

func (p Path) asAny() []any {
	if len(p) == 0 {
		return nil
	}
	out := make([]any, len(p))
	copy(out, p)
	return out
}

func appendPath(p Path, elem any) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = elem
	return out
}

func pathToString(p Path) string {
	s := ""
	for i, elem := range p {
		if i > 0 {
			s += "."
		}
		switch v := elem.(type) {
		case string:
			s += v
		case int:
			s += fmt.Sprintf("[%d]", v)
		}
	}
	return s
}

// ExecutionResult is the gateway's top-level response: the assembled
// response tree plus any located GraphQL-over-HTTP errors accumulated
// across partitions and during Non-Null completion.
type ExecutionResult struct {
	Data   any           `json:"data"`
	Errors gqlerror.List `json:"errors,omitempty"`
}
