// Package cli implements the datalens command line: the terminal façade
// over the REST API.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanwahyu/datalens/internal/client"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     Config
	client  *client.Client
	state   *State
	out     io.Writer
	errOut  io.Writer
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: newViper(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "datalens",
		Short:         "Upload datasets and run analysis tasks on a datalens server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(); err != nil {
				return err
			}
			a.watchInterrupt(cmd.Context())
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.datalens/config.yaml)")
	f.String("server", "", "API base URL")
	f.String("api-key", "", "API key sent as a bearer token")
	f.Int("timeout", 0, "HTTP timeout in seconds")
	f.String("state", "", "state file (default is ~/.datalens/state.yaml)")
	_ = a.v.BindPFlag("server", f.Lookup("server"))
	_ = a.v.BindPFlag("api_key", f.Lookup("api-key"))
	_ = a.v.BindPFlag("timeout_sec", f.Lookup("timeout"))
	_ = a.v.BindPFlag("state_file", f.Lookup("state"))

	root.AddCommand(
		a.datasetsCmd(),
		a.useCmd(),
		a.uploadCmd(),
		a.previewCmd(),
		a.processCmd(),
		a.mineCmd(),
		a.classifyCmd(),
		a.evaluateCmd(),
		a.historyCmd(),
		a.errorsCmd(),
		a.explainCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := loadConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.state, err = LoadState(cfg.StateFile)
	if err != nil {
		return err
	}
	a.client = client.New(cfg.Server,
		client.WithAPIKey(cfg.APIKey),
		client.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		client.WithRetry(cfg.RetryMaxAttempts, cfg.BaseDelay(), 10*cfg.BaseDelay()),
	)
	return nil
}

// watchInterrupt tells the user when ctx ends while a call is outstanding.
func (a *app) watchInterrupt(ctx context.Context) {
	if ctx == nil || ctx.Done() == nil {
		return
	}
	go func() {
		<-ctx.Done()
		a.reportInterrupt()
	}()
}

func (a *app) reportInterrupt() {
	if a.client != nil && a.client.InFlight() {
		fmt.Fprintln(a.errOut, "Interrupted; cancelling the request in flight.")
	}
}

// selected returns the selected dataset after checking the server still
// lists it. The id comes from the listing, so a re-uploaded file is followed.
func (a *app) selected(cmd *cobra.Command) (string, int64, error) {
	name, _, err := a.state.Selected()
	if err != nil {
		return "", 0, err
	}
	list, err := a.client.ListDatasets(cmd.Context())
	if err != nil {
		return "", 0, err
	}
	for _, d := range list {
		if d.Filename == name {
			return name, int64(d.ID), nil
		}
	}
	return "", 0, fmt.Errorf("%w: %q is no longer on the server", ErrStaleDataset, name)
}
