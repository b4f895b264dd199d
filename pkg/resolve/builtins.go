package resolve

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// builtin re-evaluates on every reference — callers must never cache a
// builtin's rendered value across resolutions.
type builtin func() string

// builtins maps the synthetic `$name` references to their generators.
// google/uuid backs $guid, matching the RFC-4122 v4 requirement.
var builtins = map[string]builtin{
	"$guid": func() string {
		return uuid.New().String()
	},
	"$timestamp": func() string {
		return strconv.FormatInt(time.Now().Unix(), 10)
	},
	"$isoTimestamp": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"$randomInt": func() string {
		return strconv.Itoa(randomInt(0, 1000))
	},
}

// randomInt is isolated so tests can pin its behavior via randSource.
func randomInt(min, max int) int {
	return min + randSource.Intn(max-min+1)
}
