// Package cli implements the slurmctl command tree.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	slurm "github.com/slurmsdk/slurm-go-sdk"
	"github.com/slurmsdk/slurm-go-sdk/internal/config"
	"github.com/slurmsdk/slurm-go-sdk/middleware"
)

// app holds flag values and the state shared by every subcommand.
type app struct {
	root *cobra.Command
	log  *log.Logger

	configPath string
	baseURL    string
	token      string
	timeout    time.Duration
	retries    int
	verbose    bool

	cfg    config.Config
	lookup func(string) (string, bool)
}

// command is one slurmctl subcommand.
type command interface {
	registerFlags() *cobra.Command
	run(a *app, cmd *cobra.Command, args []string) error
}

// Execute runs slurmctl with args and reports failures on errOut.
func Execute(args []string, out, errOut io.Writer) error {
	a := newApp(out, errOut, os.LookupEnv)
	a.root.SetArgs(args)
	err := a.root.Execute()
	if err != nil {
		a.reportError(err)
	}
	return err
}

func newApp(out, errOut io.Writer, lookup func(string) (string, bool)) *app {
	logger := log.New()
	logger.SetOutput(errOut)
	logger.SetLevel(log.WarnLevel)

	a := &app{log: logger, lookup: lookup}
	a.root = &cobra.Command{
		Use:               "slurmctl",
		Short:             "slurmctl is a command-line client for the Slurm REST API",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	a.root.SetOut(out)
	a.root.SetErr(errOut)

	flags := a.root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath+")")
	flags.StringVar(&a.baseURL, "url", "", "Slurm API base URL (env "+config.EnvURL+")")
	flags.StringVar(&a.token, "token", "", "bearer access token (env "+config.EnvToken+")")
	flags.DurationVar(&a.timeout, "timeout", 0, "request timeout")
	flags.IntVar(&a.retries, "retries", 0, "retry failed requests this many times with exponential backoff")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log every HTTP request")

	a.addCmd(a.root, &loginCmd{})

	users := &cobra.Command{Use: "users", Short: "Manage users"}
	a.addCmd(users, &listUsersCmd{})
	a.addCmd(users, &createUserCmd{})
	a.root.AddCommand(users)

	jobs := &cobra.Command{Use: "jobs", Short: "Inspect and control jobs"}
	a.addCmd(jobs, &listJobsCmd{})
	for _, action := range jobActions {
		a.addCmd(jobs, &jobActionCmd{action: action})
	}
	a.root.AddCommand(jobs)

	return a
}

func (a *app) addCmd(parent *cobra.Command, cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(a, innerCmd, args)
	}
	parent.AddCommand(cobraCmd)
}

// setup resolves settings: file, then environment, then flags.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.verbose {
		a.log.SetLevel(log.DebugLevel)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(a.lookup)

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.BaseURL = a.baseURL
	}
	if flags.Changed("token") {
		cfg.AccessToken = a.token
	}
	if flags.Changed("timeout") {
		cfg.Timeout = a.timeout
	}
	if flags.Changed("retries") {
		if a.retries < 0 {
			return fmt.Errorf("--retries must not be negative")
		}
		cfg.Retries = a.retries
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("no API URL configured: pass --url or set %s", config.EnvURL)
	}
	a.cfg = cfg
	return nil
}

// client builds a Slurm client from the resolved settings.
func (a *app) client() (*slurm.Client, error) {
	client, err := slurm.NewClient(a.cfg.BaseURL,
		slurm.WithAccessToken(a.cfg.AccessToken),
		slurm.WithTransportOptions(
			slurm.WithDoer(newDoer(a.cfg, a.log)),
			slurm.WithMiddleware(middleware.Recovery(nil), logRequests(a.log)),
		),
	)
	return client, pkgerrors.Wrap(err, "create client")
}

// print writes v as indented JSON.
func (a *app) print(v any) error {
	enc := json.NewEncoder(a.root.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) reportError(err error) {
	var sErr *slurm.Error
	if !errors.As(err, &sErr) {
		a.log.Error(err)
		return
	}
	entry := a.log.WithField("kind", sErr.Kind.String())
	if sErr.Kind == slurm.KindRemote {
		entry = entry.WithField("status", sErr.StatusCode)
		if data, mErr := json.Marshal(sErr.Data); mErr == nil {
			entry = entry.WithField("data", string(data))
		}
	}
	entry.Error(sErr.Message)
}
