package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/bayesnet/pkg/bayesnet"
	"github.com/cognicore/bayesnet/pkg/bayesnet/config"
	"github.com/cognicore/bayesnet/pkg/bayesnet/evidence"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference/enum"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference/ve"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/sqlite"
)

func main() {
	var (
		networkPath = flag.String("network", "", "Network YAML file (required)")
		configPath  = flag.String("config", "", "Engine config file (optional)")
		query       = flag.String("query", "", "Comma-separated query variables (non-interactive mode)")
		evidenceArg = flag.String("evidence", "", "Observed values, e.g. JohnCalls=True,MaryCalls=True")
		orderArg    = flag.String("order", "", "Explicit elimination order, comma-separated")
		engineName  = flag.String("engine", "ve", "Inference engine: ve or enum")
		dbPath      = flag.String("db", "", "SQLite result journal (overrides config)")
		history     = flag.Int("history", 0, "Print the N most recent journal entries and exit")
		show        = flag.String("show", "", "Print the journal entry with this ID and exit")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *networkPath == "" {
		log.Fatal("--network required")
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	bn, err := buildEngine(ctx, *networkPath, *configPath, *engineName, *dbPath, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer bn.Close()

	if *history > 0 {
		records, err := bn.History(ctx, *history)
		if err != nil {
			log.Fatal(err)
		}
		printHistory(os.Stdout, records)
		return
	}

	if *show != "" {
		resp, err := bn.Result(ctx, *show)
		if err != nil {
			log.Fatal(err)
		}
		printResponse(os.Stdout, resp, true)
		return
	}

	var order []string
	if *orderArg != "" {
		order = splitList(*orderArg)
	}

	// One-shot query mode
	if *query != "" {
		ev, err := evidence.Parse(*evidenceArg)
		if err != nil {
			log.Fatal(err)
		}
		var reqs []bayesnet.Request
		for _, name := range splitList(*query) {
			reqs = append(reqs, bayesnet.Request{Query: name, Evidence: ev, Order: order})
		}
		responses, err := bn.QueryAll(ctx, reqs)
		if err != nil {
			log.Fatal(err)
		}
		for _, resp := range responses {
			printResponse(os.Stdout, resp, len(responses) > 1)
		}
		return
	}

	// Interactive mode
	fmt.Println("===========================================")
	fmt.Println("  Bayesian network query")
	fmt.Println("  Network:", *networkPath)
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Enter: Variable | Var=value,... (Ctrl+D to exit)")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		req, err := parseLine(line)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}
		resp, err := bn.Query(ctx, req)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}
		printResponse(os.Stdout, resp, false)
		fmt.Println()
	}

	fmt.Println("\nGoodbye!")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func buildEngine(ctx context.Context, networkPath, configPath, engineName, dbPath string, logger *zap.Logger) (*bayesnet.BayesNet, error) {
	loader := config.Loader{
		NetworkPath: networkPath,
		EnginePath:  configPath,
	}

	components, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var eng inference.Engine
	switch engineName {
	case "", "ve":
		eng = ve.New(ve.Options{
			Orderer:       components.Orderer,
			MaxFactorSize: components.MaxFactorSize,
			Logger:        logger,
		})
	case "enum":
		eng = enum.New(components.MaxFactorSize)
	default:
		return nil, fmt.Errorf("unknown engine %q (want ve or enum)", engineName)
	}

	if dbPath == "" {
		dbPath = components.StorePath
	}
	var st store.Store
	if dbPath != "" {
		st, err = sqlite.OpenSQLite(ctx, dbPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	bn, err := bayesnet.New(bayesnet.Options{
		Network: components.Network,
		Name:    components.NetworkName,
		Engine:  eng,
		Store:   st,
		Logger:  logger,
		Workers: components.Workers,
	})
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, err
	}
	return bn, nil
}

// parseLine reads "Variable | Var=value,..."; the evidence part is optional.
func parseLine(line string) (bayesnet.Request, error) {
	name, rest, _ := strings.Cut(line, "|")
	name = strings.TrimSpace(name)
	if name == "" {
		return bayesnet.Request{}, fmt.Errorf("missing query variable")
	}
	ev, err := evidence.Parse(rest)
	if err != nil {
		return bayesnet.Request{}, err
	}
	return bayesnet.Request{Query: name, Evidence: ev}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printResponse(w io.Writer, resp bayesnet.Response, header bool) {
	if header {
		title := "P(" + resp.Query
		if len(resp.Evidence) > 0 {
			title += " | " + resp.Evidence.Key()
		}
		fmt.Fprintln(w, title+")")
	}
	for _, o := range resp.Outcomes {
		fmt.Fprintf(w, "%s\t%.6f\n", o.Value, o.Prob)
	}
}

func printHistory(w io.Writer, records []store.Record) {
	for _, r := range records {
		ev := evidence.Evidence(r.Evidence).Key()
		if ev == "" {
			ev = "-"
		}
		fmt.Fprintf(w, "%s  %s  P(%s | %s)", r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.Query, ev)
		for _, o := range r.Outcomes {
			fmt.Fprintf(w, "  %s=%.4f", o.Value, o.Prob)
		}
		fmt.Fprintln(w)
	}
}
