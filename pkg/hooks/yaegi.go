package hooks

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/dispatch"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// allowedImports is the import whitelist a YaegiHook script may use, plus
// the synthetic "harrier" package exposing Runtime. No "os", "net",
// "os/exec", or "syscall": a Hook runs inside the executor's own process
// with access to the runtime scope, and the core never evaluates embedded
// script source itself; this is an external, explicitly opt-in
// implementation of that boundary, not a relaxation of it.
var allowedImports = map[string]bool{
	"harrier":         true,
	"strings":         true,
	"strconv":         true,
	"fmt":             true,
	"math":            true,
	"regexp":          true,
	"encoding/json":   true,
	"encoding/base64": true,
	"time":            true,
	"sort":            true,
	"bytes":           true,
}

// YaegiHook evaluates event scripts as a small Go subset via the yaegi
// interpreter instead of a dedicated scripting language. Each event's
// Script lines are joined, wrapped in `package main` if the script didn't
// declare one, and must define `func Run(rt *harrier.Runtime) error`,
// where "harrier" is a synthetic import exported into the interpreter.
//
// This stays an external collaborator: it is wired by callers that opt
// in, never by pkg/executor itself.
type YaegiHook struct{}

// Runtime is the object a yaegi-evaluated script's Run function receives.
// Get/Set give the script read/write access to the runtime scope;
// StatusCode/Body are populated only for test-event scripts.
type Runtime struct {
	StatusCode int
	Body       string

	ctx *runctx.Context
}

func (r *Runtime) Get(key string) (string, bool) { return r.ctx.Get(key) }
func (r *Runtime) Set(key, value string)         { r.ctx.Set(runctx.ScopeRuntime, key, value) }

func (YaegiHook) OnPreRequest(_ *collection.Request, ev collection.Event, ctx *runctx.Context) error {
	return evalScript(ev.Script, ctx, nil)
}

func (YaegiHook) OnTest(_ *collection.Request, ev collection.Event, resp *dispatch.Response, ctx *runctx.Context) error {
	return evalScript(ev.Script, ctx, resp)
}

// hostSymbols is the synthetic "harrier" package exported into each
// interpreter so scripts can name *harrier.Runtime.
var hostSymbols = interp.Exports{
	"harrier/harrier": {
		"Runtime": reflect.ValueOf((*Runtime)(nil)),
	},
}

func evalScript(lines []string, ctx *runctx.Context, resp *dispatch.Response) error {
	code := strings.Join(lines, "\n")
	if strings.TrimSpace(code) == "" {
		return nil
	}
	if err := validateImports(code); err != nil {
		return err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("yaegi hook: stdlib load: %w", err)
	}
	if err := i.Use(hostSymbols); err != nil {
		return fmt.Errorf("yaegi hook: host symbol load: %w", err)
	}

	full := code
	if !strings.Contains(full, "package main") {
		full = "package main\n\n" + full
	}
	if _, err := i.Eval(full); err != nil {
		return fmt.Errorf("yaegi hook: eval: %w", err)
	}

	v, err := i.Eval("main.Run")
	if err != nil {
		return fmt.Errorf("yaegi hook: Run function not found: %w", err)
	}
	run, ok := v.Interface().(func(*Runtime) error)
	if !ok {
		return fmt.Errorf("yaegi hook: Run has incorrect signature (want func(rt *harrier.Runtime) error)")
	}

	rt := &Runtime{ctx: ctx}
	if resp != nil {
		rt.StatusCode = resp.StatusCode
		rt.Body = string(resp.BodyBytes)
	}
	return run(rt)
}

func validateImports(code string) error {
	var forbidden []string
	inBlock := false
	for _, raw := range strings.Split(code, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "import ("):
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock:
			if pkg := strings.Trim(line, `"`); pkg != "" && !allowedImports[pkg] {
				forbidden = append(forbidden, pkg)
			}
		case strings.HasPrefix(line, "import "):
			pkg := strings.Trim(strings.TrimPrefix(line, "import "), `"`)
			if !allowedImports[pkg] {
				forbidden = append(forbidden, pkg)
			}
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("yaegi hook: forbidden imports: %v", forbidden)
	}
	return nil
}
