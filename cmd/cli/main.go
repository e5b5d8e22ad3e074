package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nickyhof/SheetDB"
	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/ps"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

type globalFlags struct {
	baseDir string
	gitURL  string
	name    string
	email   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "sheetdb",
		Short:         "Git-backed spreadsheet document store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	shell := newShellCmd(flags)
	root.RunE = shell.RunE

	pf := root.PersistentFlags()
	pf.StringVar(&flags.baseDir, "base-dir", "", "base directory for the repository (memory if empty)")
	pf.StringVar(&flags.gitURL, "git-url", "", "git URL to clone on first use")
	pf.StringVar(&flags.name, "name", "SheetDB", "user name for git commits")
	pf.StringVar(&flags.email, "email", "cli@sheetdb.local", "user email for git commits")

	root.AddCommand(
		shell,
		newExecCmd(flags),
		newPushCmd(flags),
		newPullCmd(flags),
		newLogCmd(flags),
		newBranchCmd(flags),
		newSnapshotCmd(flags),
		newRecoverCmd(flags),
		newRestoreCmd(flags),
	)
	return root
}

func (flags *globalFlags) identity() core.Identity {
	return core.Identity{Name: flags.name, Email: flags.email}
}

func (flags *globalFlags) open() (*ps.Persistence, error) {
	if flags.baseDir == "" {
		return ps.NewMemoryPersistence()
	}
	var gitURL *string
	if flags.gitURL != "" {
		gitURL = &flags.gitURL
	}
	return ps.NewFilePersistence(flags.baseDir, gitURL)
}

func (flags *globalFlags) newCLI(cmd *cobra.Command) (*CLI, error) {
	persistence, err := flags.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open persistence: %w", err)
	}
	engine := SheetDB.Open(persistence).Engine(flags.identity())
	return NewCLI(engine, persistence, cmd.OutOrStdout()), nil
}

func newShellCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := flags.newCLI(cmd)
			if err != nil {
				return err
			}
			printBanner(cli.out, flags)
			cli.historyFile = getHistoryPath()
			return cli.Run()
		},
	}
}

func newExecCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <file>",
		Short: "Execute JSON requests from a file, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := flags.newCLI(cmd)
			if err != nil {
				return err
			}
			failed, err := cli.ExecFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d request(s) failed", failed)
			}
			return nil
		},
	}
}

type remoteFlags struct {
	remote   string
	branch   string
	token    string
	sshKey   string
	username string
	password string
}

func (rf *remoteFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&rf.remote, "remote", "origin", "remote name")
	f.StringVar(&rf.branch, "branch", "", "branch (current branch if empty)")
	f.StringVar(&rf.token, "token", "", "access token for HTTPS remotes")
	f.StringVar(&rf.sshKey, "ssh-key", "", "private key path for SSH remotes")
	f.StringVar(&rf.username, "username", "", "user name for basic auth")
	f.StringVar(&rf.password, "password", "", "password for basic auth")
}

func (rf *remoteFlags) auth() *ps.RemoteAuth {
	switch {
	case rf.token != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: rf.token}
	case rf.sshKey != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeSSH, KeyPath: rf.sshKey}
	case rf.username != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeBasic, Username: rf.username, Password: rf.password}
	default:
		return nil
	}
}

func newPushCmd(flags *globalFlags) *cobra.Command {
	rf := &remoteFlags{}
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push commits to a remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			if err := persistence.Push(rf.remote, rf.branch, rf.auth()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Pushed to %s%s\n", SuccessColor, rf.remote, ResetColor)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newPullCmd(flags *globalFlags) *cobra.Command {
	rf := &remoteFlags{}
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull commits from a remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			if err := persistence.Pull(rf.remote, rf.branch, rf.auth()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Pulled from %s%s\n", SuccessColor, rf.remote, ResetColor)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newLogCmd(flags *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show commit history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			return printLog(cmd.OutOrStdout(), persistence, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of commits to show (0 for all)")
	return cmd
}

func shortHash(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
