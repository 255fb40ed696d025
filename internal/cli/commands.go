package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	slurm "github.com/slurmsdk/slurm-go-sdk"
	"github.com/slurmsdk/slurm-go-sdk/internal/config"
)

// readPassword returns the --password flag or the first line of stdin.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", errors.New("a password must be provided with --password or on stdin")
		}
		return "", errors.New("empty password")
	}
	return line, nil
}

// --- login ---

type loginCmd struct {
	password string
	noSave   bool
}

func (c *loginCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login USERNAME",
		Short: "Sign in and store the access token in the config file",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&c.password, "password", "", "password (read from stdin when omitted)")
	cmd.Flags().BoolVar(&c.noSave, "no-save", false, "print the token instead of saving it")
	return cmd
}

func (c *loginCmd) run(a *app, cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd, c.password)
	if err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	res, err := client.Authenticate(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}
	token, err := accessToken(res)
	if err != nil {
		return err
	}

	if c.noSave {
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	}
	a.cfg.AccessToken = token
	if err := config.Save(a.configPath, a.cfg); err != nil {
		return err
	}
	a.log.WithField("user", args[0]).Info("Logged in")
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", args[0])
	return nil
}

// accessToken pulls the token out of a sign-in response.
func accessToken(res any) (string, error) {
	m, ok := res.(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected sign-in response: %v", res)
	}
	token, ok := m["access_token"].(string)
	if !ok || token == "" {
		return "", fmt.Errorf("sign-in response has no access_token")
	}
	return token, nil
}

// --- users ---

type listUsersCmd struct{}

func (c *listUsersCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
	}
}

func (c *listUsersCmd) run(a *app, cmd *cobra.Command, args []string) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	users, err := client.ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	return a.print(users)
}

type createUserCmd struct {
	password string
}

func (c *createUserCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&c.password, "password", "", "password (read from stdin when omitted)")
	return cmd
}

func (c *createUserCmd) run(a *app, cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd, c.password)
	if err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	user, err := client.CreateUser(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}
	return a.print(user)
}

// --- jobs ---

type listJobsCmd struct {
	q      string
	offset int
	limit  int
}

func (c *listJobsCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&c.q, "query", "q", "", "search query")
	cmd.Flags().IntVar(&c.offset, "offset", 0, "offset of the first row")
	cmd.Flags().IntVar(&c.limit, "limit", 0, "maximum number of rows")
	return cmd
}

func (c *listJobsCmd) run(a *app, cmd *cobra.Command, args []string) error {
	var q slurm.JobQuery
	flags := cmd.Flags()
	if flags.Changed("query") {
		q.Q = slurm.String(c.q)
	}
	if flags.Changed("offset") {
		q.Offset = slurm.Int(c.offset)
	}
	if flags.Changed("limit") {
		q.Limit = slurm.Int(c.limit)
	}

	client, err := a.client()
	if err != nil {
		return err
	}
	jobs, err := client.ListJobs(cmd.Context(), q)
	if err != nil {
		return err
	}
	return a.print(jobs)
}

type jobAction struct {
	name  string
	short string
	call  func(c *slurm.Client, ctx context.Context, id int) (any, error)
}

var jobActions = []jobAction{
	{"pause", "Pause a job", (*slurm.Client).PauseJob},
	{"resume", "Resume a paused job", (*slurm.Client).ResumeJob},
	{"retry", "Re-run a job", (*slurm.Client).RetryJob},
	{"delete", "Delete a job", (*slurm.Client).DeleteJob},
}

type jobActionCmd struct {
	action jobAction
}

func (c *jobActionCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   c.action.name + " JOB_ID",
		Short: c.action.short,
		Args:  cobra.ExactArgs(1),
	}
}

func (c *jobActionCmd) run(a *app, cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	res, err := c.action.call(client, cmd.Context(), id)
	if err != nil {
		return err
	}
	return a.print(res)
}
