package result

import (
	"fmt"
	"time"
)

// Result is the outcome of copying one artifact to a host.
type Result struct {
	Error    error
	Artifact string
	Dest     string
	Elapsed  time.Duration
}

func (result *Result) String() string {
	if result.Error != nil {
		return fmt.Sprintf("%s to %s failed, it took %s with error: %v", result.Artifact, result.Dest, result.Elapsed, result.Error)
	}

	return fmt.Sprintf("%s to %s succeeded, it took %v", result.Artifact, result.Dest, result.Elapsed)
}

func (result *Result) ToSlackText() string {
	if result.Error != nil {
		return fmt.Sprintf(":x: `%s` to `%s` failed, it took *%s* ```%v```", result.Artifact, result.Dest, result.Elapsed, result.Error)
	}

	return fmt.Sprintf(":white_check_mark: `%s` to `%s` succeeded, it took *%v*", result.Artifact, result.Dest, result.Elapsed)
}
