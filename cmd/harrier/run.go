package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/blackcoderx/harrier/pkg/executor"
	"github.com/blackcoderx/harrier/pkg/hooks"
	"github.com/blackcoderx/harrier/pkg/idempotency"
	"github.com/blackcoderx/harrier/pkg/loader"
	"github.com/blackcoderx/harrier/pkg/result"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

var (
	runEnv             string
	runParallel        bool
	runMaxParallelism  int
	runStopOnError     bool
	runStrictVariables bool
	runTimeoutMS       int
	runRatePerSecond   float64
	runOut             string
	runCopyLast        bool
	runScripts         bool
	runStrictHooks     bool
	runCheckIdem       bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runEnv, "env", "e", "", "environment name under .harrier/environments (defaults to config's default_env)")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "run requests concurrently instead of depth-first sequentially")
	runCmd.Flags().IntVar(&runMaxParallelism, "max-parallelism", 8, "max in-flight requests in parallel mode")
	runCmd.Flags().BoolVar(&runStopOnError, "stop-on-error", false, "stop the run on the first failed request")
	runCmd.Flags().BoolVar(&runStrictVariables, "strict-variables", false, "fail a request outright on any undefined variable reference")
	runCmd.Flags().IntVar(&runTimeoutMS, "timeout-ms", 30000, "per-request timeout in milliseconds")
	runCmd.Flags().Float64Var(&runRatePerSecond, "rate", 0, "throttle dispatch rate (0 = unbounded)")
	runCmd.Flags().StringVar(&runOut, "out", "", "write the CollectionExecutionResult as JSON to this path")
	runCmd.Flags().BoolVar(&runCopyLast, "copy", false, "copy the last prepared request as a curl command to the clipboard")
	runCmd.Flags().BoolVar(&runScripts, "scripts", false, "evaluate prerequest/test event scripts with the embedded interpreter")
	runCmd.Flags().BoolVar(&runStrictHooks, "strict-hooks", false, "treat a script error as a request failure instead of a diagnostic")
	runCmd.Flags().BoolVar(&runCheckIdem, "check-idempotency", false, "report requests that dispatched byte-identical wire requests")
}

var runCmd = &cobra.Command{
	Use:   "run <collection-file>",
	Short: "Execute every request in a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c, err := loader.LoadFile(args[0])
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		rc := runctx.New()
		envName := runEnv
		if envName == "" {
			envName = cfg.DefaultEnv
		}
		if envName != "" {
			envPath := filepath.Join(cfg.EnvironmentsDir, envName+".yaml")
			if env, err := loader.LoadEnvironment(envPath); err == nil {
				for k, v := range env {
					rc.Set(runctx.ScopeEnvironment, k, v)
				}
			}
		}
		for _, v := range c.Variables {
			if v.Enabled {
				rc.Set(runctx.ScopeCollection, v.Key, v.Value)
			}
		}

		opts := executor.DefaultOptions()
		opts.Parallel = runParallel
		opts.MaxParallelism = runMaxParallelism
		opts.StopOnError = runStopOnError
		opts.StrictVariables = runStrictVariables
		opts.TimeoutMS = runTimeoutMS
		opts.RatePerSecond = runRatePerSecond
		opts.StrictHooks = runStrictHooks
		if runScripts {
			opts.Hooks = hooks.YaegiHook{}
		}

		exec := executor.New()
		defer exec.Dispose()

		start := time.Now()
		out := exec.ExecuteCollection(context.Background(), c, rc, opts)
		elapsed := time.Since(start)

		printSummary(out, elapsed)

		if runCheckIdem {
			report, err := idempotency.Check(out.Results)
			if err != nil {
				return fmt.Errorf("run: idempotency check: %w", err)
			}
			for _, dup := range report.Duplicates {
				fmt.Fprintf(os.Stderr, "duplicate wire request: %s\n", strings.Join(dup.Requests, ", "))
			}
		}

		if runOut != "" {
			if err := writeJSON(runOut, out); err != nil {
				return fmt.Errorf("run: write --out: %w", err)
			}
		}
		if runCopyLast && len(out.Results) > 0 {
			last := out.Results[len(out.Results)-1]
			if last.Wire != nil {
				_ = clipboard.WriteAll(toCurl(last))
			}
		}

		if out.Failed > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func printSummary(out *result.CollectionExecutionResult, elapsed time.Duration) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Collection run\n\n")
	fmt.Fprintf(&b, "- total: **%d**\n", out.TotalRequests)
	fmt.Fprintf(&b, "- successful: **%d**\n", out.Successful)
	fmt.Fprintf(&b, "- failed: **%d**\n", out.Failed)
	if out.StoppedEarly {
		fmt.Fprintf(&b, "- stopped early: **yes**\n")
	}
	fmt.Fprintf(&b, "- elapsed: %s\n\n", elapsed.Round(time.Millisecond))

	for _, r := range out.Results {
		status := "✓"
		detail := ""
		if !r.Success {
			status = "✗"
			detail = fmt.Sprintf(" — %s (%s)", r.Error, r.ErrorKind)
		} else if r.Response != nil {
			detail = fmt.Sprintf(" — %d %s", r.Response.StatusCode, r.Response.Reason)
		}
		fmt.Fprintf(&b, "- %s %s%s\n", status, r.RequestRef, detail)
	}

	fmt.Print(renderMarkdown(b.String()))
}

// renderMarkdown pretty-prints md for the terminal, falling back to the
// plain text when the renderer can't start.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return rendered
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// toCurl renders an ExecutionResult's prepared wire request as a curl
// command, for dropping into a bug report (--copy).
func toCurl(r *result.ExecutionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl -X %s", r.Wire.Method())
	for _, h := range r.Wire.Headers {
		fmt.Fprintf(&b, " -H %q", h.Key+": "+h.Value)
	}
	if len(r.Wire.Body) > 0 {
		fmt.Fprintf(&b, " -d %q", string(r.Wire.Body))
	}
	fmt.Fprintf(&b, " %q", r.Wire.RequestURL())
	return b.String()
}
