package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dshills/retrofit/internal/app"
	"github.com/dshills/retrofit/internal/config"
	"github.com/dshills/retrofit/internal/il"
)

var (
	watch   bool
	trace   bool
	repeat  int
	patched bool
	eager   bool
)

var runCmd = &cobra.Command{
	Use:   "run TYPE.METHOD [ARG...]",
	Short: "Invoke a host method with scripts loaded",
	Long: `Invoke a host method after loading the configured scripts.

Arguments:
  nil, true, false, integers       literal values
  "text" or str:text               strings
  Type{field=value,...}            a new host object of a declared type

Object arguments are printed after the call so their changes can be seen.`,
	Example: `  retrofit run PlayerController.MakeCriticallyInjured 'PlayerController{health=90}' true -s scripts
  retrofit run CrawlerAI.OnCollideWithPlayer 'CrawlerAI{}' 'PlayerController{health=100}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMethod,
}

var disasmCmd = &cobra.Command{
	Use:   "disasm [TYPE.METHOD...]",
	Short: "Print method bodies",
	RunE:  disassemble,
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List instrumentation candidates and their state",
	RunE:  listCandidates,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events and their handlers",
	RunE:  listEvents,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	runCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the configuration file between calls")
	runCmd.Flags().BoolVar(&trace, "trace", false, "Log every interpreted instruction")
	runCmd.Flags().IntVarP(&repeat, "repeat", "n", 1, "Number of calls")
	disasmCmd.Flags().BoolVarP(&patched, "patched", "p", false, "Apply every candidate first")
	candidatesCmd.Flags().BoolVar(&eager, "eager", false, "Apply every candidate first")
}

func newApp(cmd *cobra.Command, mutate func(*config.Config)) (*app.Application, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	return app.New(cmd.Context(), app.Options{
		ConfigPath: configPath,
		Config:     cfg,
		Watch:      watch,
		ImagePath:  imagePath,
		Trace:      trace,
	})
}

func runMethod(cmd *cobra.Command, args []string) error {
	typ, method, err := splitTarget(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	values, err := parseArgs(a, args[1:])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := 0; i < repeat; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := a.Invoke(ctx, typ, method, values...)
		if err != nil {
			return err
		}
		shown := il.FormatOperand(result)
		if result == nil {
			shown = "nil"
		}
		fmt.Fprintf(out, "call %d: %s\n", i+1, shown)
		for j, v := range values {
			if s, ok := v.(fmt.Stringer); ok {
				fmt.Fprintf(out, "  arg %d: %s\n", j, s)
			}
		}
	}
	return nil
}

func disassemble(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, func(cfg *config.Config) {
		cfg.Scripts = nil
		if patched {
			cfg.Enabled = true
			cfg.LazyInstrumentation = false
		} else {
			cfg.Enabled = false
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, m := range a.Image().Methods() {
			fmt.Fprintln(out, il.Disassemble(m))
		}
		return nil
	}
	for _, target := range args {
		typ, method, err := splitTarget(target)
		if err != nil {
			return err
		}
		m, err := a.Image().Method(typ, method)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, il.Disassemble(m))
	}
	return nil
}

func listCandidates(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, func(cfg *config.Config) {
		if eager {
			cfg.LazyInstrumentation = false
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprint(cmd.OutOrStdout(), a.Coordinator().Describe())
	for _, fault := range a.Started().Faults {
		fmt.Fprintf(cmd.ErrOrStderr(), "fault: %v\n", fault)
	}
	return nil
}

func listEvents(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tPAYLOAD\tDENIABLE\tHANDLERS")
	entries := a.Handlers().Registry.Entries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Type < entries[j].Type })
	for _, e := range entries {
		payload := "-"
		if e.Payload != nil {
			payload = e.Payload.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\n", e.Name, payload, e.Deniable(), e.Dispatcher.Len())
		for _, h := range e.Dispatcher.Handlers() {
			fmt.Fprintf(tw, "  %s\t%s\t\t\n", h.Name, h.Priority)
		}
	}
	return tw.Flush()
}

func splitTarget(s string) (string, string, error) {
	typ, method, ok := strings.Cut(s, ".")
	if !ok || typ == "" || method == "" {
		return "", "", errors.Newf("target %q: want TYPE.METHOD", s)
	}
	return typ, method, nil
}
