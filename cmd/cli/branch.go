package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickyhof/SheetDB/ps"
)

// resolveTransaction finds the commit whose id starts with prefix.
func resolveTransaction(persistence *ps.Persistence, prefix string) (*ps.Transaction, error) {
	if len(prefix) < 4 {
		return nil, fmt.Errorf("commit id %q is too short", prefix)
	}
	log, err := persistence.Log(0)
	if err != nil {
		return nil, err
	}

	var found *ps.Transaction
	for i := range log {
		if !strings.HasPrefix(log[i].Id, prefix) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("commit id %q is ambiguous", prefix)
		}
		found = &log[i]
	}
	if found == nil {
		return nil, fmt.Errorf("no commit matches %q", prefix)
	}
	return found, nil
}

func newBranchCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "List, create, switch and merge branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			return printBranches(cmd, persistence)
		},
	}

	var from string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a branch at HEAD or at --from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			var at *ps.Transaction
			if from != "" {
				if at, err = resolveTransaction(persistence, from); err != nil {
					return err
				}
			}
			if err := persistence.Branch(args[0], at); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Created branch %s%s\n", SuccessColor, args[0], ResetColor)
			return nil
		},
	}
	create.Flags().StringVar(&from, "from", "", "commit id to branch from")

	checkout := &cobra.Command{
		Use:   "checkout <name>",
		Short: "Switch to a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			if err := persistence.Checkout(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Switched to %s%s\n", SuccessColor, args[0], ResetColor)
			return nil
		},
	}

	merge := &cobra.Command{
		Use:   "merge <name>",
		Short: "Fast-forward the current branch to another",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			txn, err := persistence.Merge(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Now at %s%s\n", SuccessColor, shortHash(txn.Id), ResetColor)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			if err := persistence.DeleteBranch(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Deleted branch %s%s\n", SuccessColor, args[0], ResetColor)
			return nil
		},
	}

	cmd.AddCommand(create, checkout, merge, remove)
	return cmd
}

func printBranches(cmd *cobra.Command, persistence *ps.Persistence) error {
	branches, err := persistence.ListBranches()
	if err != nil {
		return err
	}
	current, _ := persistence.CurrentBranch()
	for _, branch := range branches {
		marker := "  "
		if branch == current {
			marker = "* "
		}
		fmt.Fprintln(cmd.OutOrStdout(), marker+branch)
	}
	return nil
}

func newSnapshotCmd(flags *globalFlags) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "snapshot [name]",
		Short: "Tag the current state, or list snapshots when no name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				names, err := persistence.ListSnapshots()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			var asof *ps.Transaction
			if at != "" {
				if asof, err = resolveTransaction(persistence, at); err != nil {
					return err
				}
			}
			if err := persistence.Snapshot(args[0], asof); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Snapshot %s created%s\n", SuccessColor, args[0], ResetColor)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "commit id to tag instead of HEAD")
	return cmd
}

func newRecoverCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <snapshot>",
		Short: "Bring every sheet back to a snapshot as a new commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			txn, err := persistence.Recover(args[0], flags.identity())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Recovered %s at %s%s\n", SuccessColor, args[0], shortHash(txn.Id), ResetColor)
			return nil
		},
	}
}

func newRestoreCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <table> <commit>",
		Short: "Bring one table back to its state at a commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := flags.open()
			if err != nil {
				return err
			}
			asof, err := resolveTransaction(persistence, args[1])
			if err != nil {
				return err
			}
			txn, err := persistence.RestoreSheet(args[0], *asof, flags.identity())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Restored %s at %s%s\n", SuccessColor, args[0], shortHash(txn.Id), ResetColor)
			return nil
		},
	}
}
