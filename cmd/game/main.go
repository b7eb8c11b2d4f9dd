// Command game ranks a character's opening gambits against an opponent, or
// plays out a single scripted duel and prints its log.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/pefman/w40k-challenge/internal/api"
	"github.com/pefman/w40k-challenge/internal/config"
	"github.com/pefman/w40k-challenge/internal/models"
	"github.com/pefman/w40k-challenge/internal/sim"
)

var errUsage = errors.New("usage")

type options struct {
	player, opponent string
	weapon, profile  int
	sims, workers    int
	rounds           int
	seed             int64
	out              string
	duel             bool
	server           string
	catalogDir       string
	verbose          bool
}

func parseFlags(args []string, cfg config.Config, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("game", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.player, "player", "", "player character id")
	fs.StringVar(&o.opponent, "ai", "", "opponent character id")
	fs.IntVar(&o.weapon, "weapon", 0, "player weapon index")
	fs.IntVar(&o.profile, "profile", 0, "player weapon profile index")
	fs.IntVar(&o.sims, "sims", cfg.SimsPerGambit, "simulations per opening gambit")
	fs.IntVar(&o.workers, "workers", cfg.SimWorkers, "gambits simulated at once (0 = GOMAXPROCS)")
	fs.IntVar(&o.rounds, "rounds", sim.DefaultMaxRounds, "round cap per challenge")
	fs.Int64Var(&o.seed, "seed", cfg.SimSeed, "seed (0 = from the clock)")
	fs.StringVar(&o.out, "out", "", "write the ranked results as JSON to this file")
	fs.BoolVar(&o.duel, "duel", false, "play one scripted duel and print its log")
	fs.StringVar(&o.server, "server", "", "run the batch on an api server at this URL")
	fs.StringVar(&o.catalogDir, "catalog", cfg.CatalogDir, "catalogue directory (default embedded)")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.player == "" || o.opponent == "" {
		fs.Usage()
		return o, fmt.Errorf("%w: -player and -ai are required", errUsage)
	}
	return o, nil
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}
	cfg.CatalogDir = o.catalogDir
	cfg.LogLevel = "warn"
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if o.server != "" {
		return runRemote(ctx, o, stdout)
	}

	book, err := cfg.Catalog(log)
	if err != nil {
		return fmt.Errorf("load catalogue: %w", err)
	}
	player, err := book.Character(o.player)
	if err != nil {
		return err
	}
	opponent, err := book.Character(o.opponent)
	if err != nil {
		return err
	}
	runner := sim.NewRunner(book, sim.WithLogger(log), sim.WithSims(o.sims), sim.WithWorkers(o.workers),
		sim.WithSeed(o.seed), sim.WithMaxRounds(o.rounds))
	ref := models.WeaponRef{Weapon: o.weapon, Profile: o.profile}

	if o.duel {
		seed := o.seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		if _, ok := player.Profile(ref); !ok {
			return fmt.Errorf("%s has no melee profile %d/%d", player.ID, o.weapon, o.profile)
		}
		printDuel(stdout, runner.Play(player, opponent, "", ref, seed))
		return nil
	}

	start := time.Now()
	results, err := runner.RunAll(ctx, player, opponent, ref, nil)
	if err != nil {
		return err
	}
	log.Info("batch done", zap.Duration("took", time.Since(start)))
	fmt.Fprintf(stdout, "%s vs %s, %d sims per gambit\n\n", player.Name, opponent.Name, runner.Sims())
	printResults(stdout, results)
	return writeReport(o.out, results)
}

// runRemote submits the batch to a server and waits for it.
func runRemote(ctx context.Context, o options, stdout io.Writer) error {
	if o.duel {
		return fmt.Errorf("%w: -duel runs locally only", errUsage)
	}
	c := api.NewClient(o.server)
	st, err := c.StartSimulation(ctx, api.SimulationRequest{
		Player: o.player, AI: o.opponent, Weapon: o.weapon, Profile: o.profile, Sims: o.sims,
	})
	if err != nil {
		return err
	}
	st, err = c.WaitSimulation(ctx, st.ID, 250*time.Millisecond)
	if err != nil {
		return err
	}
	if st.Status == api.JobFailed {
		return fmt.Errorf("simulation %s failed: %s", st.ID, st.Error)
	}
	fmt.Fprintf(stdout, "%s vs %s, job %s\n\n", st.Player, st.AI, st.ID)
	printResults(stdout, st.Results)
	return writeReport(o.out, st.Results)
}

func printResults(w io.Writer, results []sim.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tGAMBIT\tWIN%\tCRP DELTA\tSCORE")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%+.2f\t%.3f\n", i+1, r.GambitName, 100*r.WinRate, r.AvgCRPDelta, r.Score)
	}
	_ = tw.Flush()
}

func printDuel(w io.Writer, s models.CombatState) {
	for _, e := range s.Log {
		fmt.Fprintf(w, "[%d %s] %s\n", e.Round, e.Phase, e.Message)
	}
	winner := "draw"
	if side := sim.Winner(s); side != models.SideNone {
		winner = string(side)
	}
	fmt.Fprintf(w, "\nwinner: %s  crp %d-%d  rounds %d\n", winner, s.PlayerCRP, s.AICRP, s.Round)
}

func writeReport(path string, results []sim.Result) error {
	if path == "" {
		return nil
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
