package oltpbench

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Client interface {
	Main()
}

// openDB creates and initializes the database named in args.
func openDB(args *Arguments) (DB, error) {
	db, err := NewDB(args.Database, args.Properties)
	if err != nil {
		return nil, err
	}
	if err = db.Init(); err != nil {
		return nil, fmt.Errorf("init db %s: %w", args.Database, err)
	}
	return db, nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type Loader struct {
	args *Arguments
}

func NewLoader(args *Arguments) *Loader {
	return &Loader{
		args: args,
	}
}

// Main loads the reference data and prints what was found.
func (self *Loader) Main() {
	ctx, cancel := signalContext()
	defer cancel()
	db, err := openDB(self.args)
	if err != nil {
		ExitOnError("fail to open db, error: %s", err)
	}
	defer db.Cleanup()
	refs, err := LoadReferences(ctx, db)
	if err != nil {
		db.Cleanup()
		ExitOnError("fail to load references, error: %s", err)
	}
	refs.Describe(OutputDest)
}

type Runner struct {
	args *Arguments
}

func NewRunner(args *Arguments) *Runner {
	return &Runner{
		args: args,
	}
}

func (self *Runner) Main() {
	ctx, cancel := signalContext()
	defer cancel()
	cfg, err := NewRunConfig(self.args.Properties)
	if err != nil {
		ExitOnError("invalid configuration, error: %s", err)
	}
	if len(cfg.MetricsAddr) > 0 {
		server, err := self.setupMetrics(cfg)
		if err != nil {
			ExitOnError("fail to setup metrics, error: %s", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				Warnf("fail to shutdown metrics server: %s", err)
			}
		}()
	}
	db, err := openDB(self.args)
	if err != nil {
		ExitOnError("fail to open db, error: %s", err)
	}
	defer db.Cleanup()
	if _, err = Run(ctx, cfg, db, OutputDest); err != nil {
		db.Cleanup()
		ExitOnError("run failed, error: %s", err)
	}
}

func (self *Runner) setupMetrics(cfg *RunConfig) (*MetricsServer, error) {
	base, err := NewDefaultMeasurements(cfg.Properties)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	measurements, err := NewPrometheusMeasurements(base, registry)
	if err != nil {
		return nil, err
	}
	cfg.Measurements = measurements
	return ServeMetrics(cfg.MetricsAddr, registry)
}

type Shell struct {
	args *Arguments
}

func NewShell(args *Arguments) *Shell {
	return &Shell{
		args: args,
	}
}

var (
	regexCmd = regexp.MustCompile(`\s+`)
)

func (self *Shell) Main() {
	ctx, cancel := signalContext()
	defer cancel()
	db, err := openDB(self.args)
	if err != nil {
		ExitOnError("fail to open db, error: %s", err)
	}
	defer db.Cleanup()
	Foutput(OutputDest, "oltpbench Command Line Client")
	Foutput(OutputDest, `Type "help" for command line help`)
	Foutput(OutputDest, "Connected.")
	if err = Serve(ctx, db, os.Stdin, OutputDest); err != nil {
		db.Cleanup()
		ExitOnError("shell failed, error: %s", err)
	}
}

// Serve runs single operations read line by line from in against db and
// writes their results to out, until "quit", end of input or ctx is done.
func Serve(ctx context.Context, db DB, in io.Reader, out io.Writer) error {
	p := db.GetProperties()
	if p == nil {
		p = NewProperties()
	}
	measurements, err := NewDefaultMeasurements(p)
	if err != nil {
		return err
	}
	wrapper, err := NewDBWrapper(db, measurements)
	if err != nil {
		return err
	}
	limits := make(map[string]int64)
	for op, key := range map[string][2]string{
		OpBrowse:   {PropertyBrowseLimit, PropertyBrowseLimitDefault},
		OpSeller:   {PropertySellerLimit, PropertySellerLimitDefault},
		OpComments: {PropertyCommentsLimit, PropertyCommentsLimitDefault},
	} {
		if limits[op], err = p.GetInt64(key[0], key[1]); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if ctx.Err() != nil || !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := regexCmd.Split(line, -1)
		if len(parts) > 0 && len(parts[0]) == 0 {
			parts = parts[1:]
		}
		if len(parts) > 0 && len(parts[len(parts)-1]) == 0 {
			parts = parts[:len(parts)-1]
		}
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "help":
			shellHelp(out)
			continue
		case "quit", "exit":
			return nil
		case "refs":
			start := time.Now()
			refs, err := LoadReferences(ctx, db)
			if err != nil {
				Foutput(out, "Error: %s", err)
			} else {
				refs.Describe(out)
			}
			Foutput(out, "%.3f ms", durationToMillisecond(time.Since(start)))
			continue
		}
		if len(parts) != 2 {
			Foutput(out, `Error: syntax is "%s ID"`, parts[0])
			continue
		}
		id, err := strconv.ParseInt(parts[1], 0, 64)
		if err != nil {
			Foutput(out, "Error: invalid id: %s", parts[1])
			continue
		}
		var o *Outcome
		switch parts[0] {
		case OpBrowse:
			o = wrapper.Browse(ctx, id, limits[OpBrowse])
		case OpSeller:
			o = wrapper.SellerListings(ctx, id, limits[OpSeller])
		case OpComments:
			o = wrapper.Comments(ctx, id, limits[OpComments])
		default:
			proc, err := ParseProcedure(parts[0])
			if err != nil {
				Foutput(out, `Error: unknown command "%s"`, parts[0])
				continue
			}
			o = wrapper.CallProcedure(ctx, proc, id)
		}
		if o.Operation != OpProcedure {
			Foutput(out, "%d rows", o.Rows)
		}
		Foutput(out, "Result: %s", o.Status)
		if o.Err != nil {
			Foutput(out, "Error: %s", o.Err)
		}
		Foutput(out, "%.3f ms", durationToMillisecond(o.Elapsed))
	}
	return scanner.Err()
}

func durationToMillisecond(d time.Duration) float64 {
	return MicrosecondToMillisecond(float64(NanosecondToMicrosecond(int64(d))))
}

func shellHelp(out io.Writer) {
	help := `Commands
  browse category_id - Newest available listings of a category
  seller user_id - Newest listings of a seller
  comments listing_id - Newest comments of a listing
  confirm|cancel|reject|complete order_id - Call the order stored procedure
  refs - Load and describe the reference identifiers
  quit - Quit`
	Foutput(out, "%s", help)
}
