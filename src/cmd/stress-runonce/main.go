package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-translate/src/eventloop"
	"screen-translate/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

// tally counts how each delegated run ended.
type tally struct {
	ok          atomic.Int32
	translation atomic.Int32
	busy        atomic.Int32
	notResident atomic.Int32
	failed      atomic.Int32
}

func (t *tally) String() string {
	return fmt.Sprintf("ok=%d translation_error=%d busy=%d not_resident=%d err=%d",
		t.ok.Load(), t.translation.Load(), t.busy.Load(), t.notResident.Load(), t.failed.Load())
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-runonce",
		Short:         "Fire concurrent run-once translations at the resident instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.mode != "std" && opts.mode != "clip" {
				return fmt.Errorf("--mode must be std or clip, got %q", opts.mode)
			}
			start, end := singleinstance.PortRange()
			fmt.Fprintf(cmd.OutOrStdout(), "ports=%d-%d\n", start, end)
			runWithOptions(*opts, singleinstance.NewClient, cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "std", "std|clip: translated text on stdout or on the clipboard")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 45*time.Second, "per-client timeout")

	return cmd
}

func runWithOptions(opts stressOptions, newClient func() singleinstance.Client, out io.Writer) *tally {
	var wg sync.WaitGroup
	counts := &tally{}

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, _, err := newClient().TryRunOnce(ctx, opts.mode == "std")
			counts.record(delegated, err)
		}()
	}
	wg.Wait()
	fmt.Fprintf(out, "launched=%d %s elapsed=%s\n", opts.n, counts, time.Since(start))
	return counts
}

func (t *tally) record(delegated bool, err error) {
	switch {
	case err == nil && delegated:
		t.ok.Add(1)
	case err == nil:
		t.notResident.Add(1)
	case err.Error() == eventloop.ErrBusy.Error() || errors.Is(err, eventloop.ErrBusy):
		t.busy.Add(1)
	case strings.HasPrefix(err.Error(), "Translation Error:"):
		t.translation.Add(1)
	default:
		t.failed.Add(1)
	}
}
