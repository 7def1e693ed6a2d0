package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/envquery"
	"github.com/hupe1980/envquery/codec"
	"github.com/hupe1980/envquery/debug"
	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
	"github.com/hupe1980/envquery/template"
)

var errNoResult = errors.New("query produced no result")

type runOptions struct {
	templates []string
	worldPath string
	name      string
	owner     uint64
	mode      string
	params    map[string]string
	sliced    bool
	json      bool
	codec     string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a query template against a world",
		Long: `Run a query template against a world and print the result items.

Examples:
  envquery run -t cover.toml -w level.toml -q FindCover --owner 1
  envquery run -t cover.yaml -q FindCover --mode AllMatching --param MaxDistance=800 --json
  envquery run -t cover.toml -w level.toml -q FindCover --owner 1 --sliced`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.templates, "templates", "t", nil, "Template files (TOML or YAML)")
	cmd.Flags().StringVarP(&opts.worldPath, "world", "w", "", "World file (TOML)")
	cmd.Flags().StringVarP(&opts.name, "query", "q", "", "Template name to run")
	cmd.Flags().Uint64Var(&opts.owner, "owner", 0, "Actor ID of the querier")
	cmd.Flags().StringVar(&opts.mode, "mode", query.SingleBestItem.String(), "Run mode: SingleBestItem, RandomBest5Pct, RandomBest25Pct, AllMatching")
	cmd.Flags().StringToStringVar(&opts.params, "param", nil, "Named float params, e.g. --param MaxDistance=800")
	cmd.Flags().BoolVar(&opts.sliced, "sliced", false, "Run time-sliced through the manager tick loop")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&opts.codec, "codec", codec.Default.Name(), "JSON codec: "+strings.Join(codec.Names(), ", "))
	_ = cmd.MarkFlagRequired("templates")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runQuery(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := cfg.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	mode, ok := query.ParseRunMode(opts.mode)
	if !ok {
		return fmt.Errorf("unknown run mode %q", opts.mode)
	}
	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}
	c, ok := codec.ByName(opts.codec)
	if !ok {
		return fmt.Errorf("unknown codec %q", opts.codec)
	}

	w, err := loadWorld(opts.worldPath)
	if err != nil {
		return err
	}

	managerOpts := []envquery.Option{
		envquery.WithLogger(logger),
		envquery.WithMaxAllowedTestingTime(cfg.MaxTestingTime),
		envquery.WithMemoryLimit(cfg.MemoryLimit),
	}
	if cfg.Seed != 0 {
		managerOpts = append(managerOpts, envquery.WithRandSeed(cfg.Seed))
	}
	var dbg *debug.Debugger
	if cfg.Debug {
		compression, err := debug.ParseCompression(cfg.DebugCompression)
		if err != nil {
			return err
		}
		dbg = debug.New(
			debug.WithCompression(compression),
			debug.WithHistoryLimit(cfg.DebugHistory),
			debug.WithLogger(logger.Logger),
		)
		managerOpts = append(managerOpts, envquery.WithDebugger(dbg))
	}

	m := envquery.New(w, managerOpts...)
	defer m.Close(context.WithoutCancel(ctx))

	if err := registerTemplates(m, opts.templates); err != nil {
		return err
	}
	for key, p := range w.contexts {
		m.RegisterContext(key, p)
	}

	req := envquery.Request{
		Template: opts.name,
		Owner:    model.ActorID(opts.owner),
		RunMode:  mode,
		Params:   params,
	}

	var res *query.Result
	if opts.sliced {
		res, err = runSliced(ctx, m, req)
	} else {
		res, err = m.RunInstantQuery(ctx, req)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		err = printResultJSON(out, c, res)
	} else {
		err = printResult(out, res)
	}
	if err != nil {
		return err
	}

	if dbg != nil && !opts.json {
		printDebug(out, dbg, req.Owner)
	}

	if !res.IsSuccessful() {
		return fmt.Errorf("%w: status %s", errNoResult, res.Status)
	}
	return nil
}

// runSliced drives the query through RunQuery and Tick like a game loop.
func runSliced(ctx context.Context, m *envquery.Manager, req envquery.Request) (*query.Result, error) {
	var res *query.Result
	if _, err := m.RunQuery(ctx, req, func(r *query.Result) { res = r }); err != nil {
		return nil, err
	}
	for res == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.Tick(ctx)
	}
	return res, nil
}

func registerTemplates(m *envquery.Manager, paths []string) error {
	reg := template.NewRegistry()
	for _, path := range paths {
		queries, err := reg.LoadFile(path)
		if err != nil {
			return err
		}
		for _, q := range queries {
			if err := m.RegisterTemplate(q); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return nil
}

func parseParams(raw map[string]string) (map[string]float32, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]float32, len(raw))
	for name, s := range raw {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}
		params[name] = float32(v)
	}
	return params, nil
}

type resultJSON struct {
	Query         string     `json:"query"`
	Status        string     `json:"status"`
	RunMode       string     `json:"runMode"`
	Option        int        `json:"option"`
	Steps         int        `json:"steps"`
	ExecutionTime string     `json:"executionTime"`
	Items         []itemJSON `json:"items"`
}

type itemJSON struct {
	Score    float32    `json:"score"`
	Location [3]float32 `json:"location"`
	Actor    uint64     `json:"actor,omitempty"`
}

func printResultJSON(w io.Writer, c codec.Codec, res *query.Result) error {
	out := resultJSON{
		Query:         res.QueryName,
		Status:        res.Status.String(),
		RunMode:       res.RunMode.String(),
		Option:        res.OptionIndex,
		Steps:         res.Steps,
		ExecutionTime: res.ExecutionTime.String(),
		Items:         make([]itemJSON, 0, res.NumItems()),
	}
	for i := range res.Items {
		item := itemJSON{Score: res.ItemScore(i)}
		if loc, ok := res.ItemLocation(i); ok {
			item.Location = [3]float32{loc.X, loc.Y, loc.Z}
		}
		if a, ok := res.ItemActor(i); ok {
			item.Actor = uint64(a.ID())
		}
		out.Items = append(out.Items, item)
	}

	return codec.WriteIndented(w, c, out)
}

func printResult(w io.Writer, res *query.Result) error {
	fmt.Fprintf(w, "Query:   %s (%s)\n", res.QueryName, res.RunMode)
	fmt.Fprintf(w, "Status:  %s, option %d, %d steps in %v\n", res.Status, res.OptionIndex, res.Steps, res.ExecutionTime.Round(time.Microsecond))
	if res.NumItems() == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tLOCATION\tACTOR")
	for i := range res.Items {
		loc, _ := res.ItemLocation(i)
		actor := "-"
		if a, ok := res.ItemActor(i); ok {
			actor = strconv.FormatUint(uint64(a.ID()), 10)
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\n", i+1, res.ItemScore(i), loc, actor)
	}
	return tw.Flush()
}

func printDebug(w io.Writer, dbg *debug.Debugger, owner model.ActorID) {
	for _, snap := range dbg.QueriesForOwner(owner, 1) {
		fmt.Fprintf(w, "\nDebug %s: %d steps captured\n", snap.ID, len(snap.Steps))
		for i, name := range snap.PerformedTests {
			fmt.Fprintf(w, "  test %d %-30s discarded %d\n", i, name, snap.NumFailed(i))
		}
	}
}
