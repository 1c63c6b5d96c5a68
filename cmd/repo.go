package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/minigit/internal/flags"
	"github.com/nicholas-fedor/minigit/pkg/browse"
	"github.com/nicholas-fedor/minigit/pkg/git"
	"github.com/nicholas-fedor/minigit/pkg/repository"
)

// newRepoCommand creates the "repo" command group for managing repositories
// without a running server.
func newRepoCommand() *cobra.Command {
	repoCmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage repositories in the storage directory",
	}

	repoCmd.AddCommand(
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create an empty bare repository",
			Args:  cobra.ExactArgs(1),
			RunE:  runRepoCreate,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List repositories",
			Args:  cobra.NoArgs,
			RunE:  runRepoList,
		},
		&cobra.Command{
			Use:   "show NAME",
			Short: "Summarize a repository",
			Args:  cobra.ExactArgs(1),
			RunE:  runRepoShow,
		},
		&cobra.Command{
			Use:   "branches NAME",
			Short: "List the branches of a repository",
			Args:  cobra.ExactArgs(1),
			RunE:  runRepoBranches,
		},
	)

	return repoCmd
}

// openStorage builds a repository manager from the root command's flags.
func openStorage(cmd *cobra.Command) (*repository.Manager, *browse.Service, error) {
	cfg, err := flags.ReadConfig(cmd.Root())
	if err != nil {
		return nil, nil, err
	}

	manager := repository.NewManager(cfg.StorageDir, cfg.InitialBranch, git.NewStore())

	return manager, browse.NewService(manager, cfg.PreferredBranches), nil
}

func runRepoCreate(cmd *cobra.Command, args []string) error {
	manager, _, err := openStorage(cmd)
	if err != nil {
		return err
	}

	if err := manager.EnsureRoot(); err != nil {
		return fmt.Errorf("%w: %w", errStorageUnavailable, err)
	}

	name, err := manager.Create(args[0])
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), name)

	return err
}

func runRepoList(cmd *cobra.Command, _ []string) error {
	manager, _, err := openStorage(cmd)
	if err != nil {
		return err
	}

	names, err := manager.List()
	if err != nil {
		return err
	}

	for _, name := range names {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
			return err
		}
	}

	return nil
}

func runRepoShow(cmd *cobra.Command, args []string) error {
	manager, service, err := openStorage(cmd)
	if err != nil {
		return err
	}

	summary, err := service.Summarize(args[0])
	if err != nil {
		return err
	}

	size, err := manager.Size(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	canonical := repository.NormalizeName(args[0])
	fmt.Fprintf(w, "Name:\t%s\n", repository.DisplayName(canonical))
	fmt.Fprintf(w, "Directory:\t%s\n", canonical)
	fmt.Fprintf(w, "Size:\t%s\n", humanize.IBytes(uint64(size)))
	fmt.Fprintf(w, "Branches:\t%d\n", summary.BranchCount)

	if summary.Empty {
		fmt.Fprintf(w, "Status:\tempty\n")

		return w.Flush()
	}

	if summary.DefaultBranch != "" {
		fmt.Fprintf(w, "Default branch:\t%s\n", summary.DefaultBranch)
	}

	if head := summary.HeadCommit; head != nil {
		fmt.Fprintf(w, "Last commit:\t%s %s (%s, %s)\n",
			head.ShortHash, head.ShortMessage, head.AuthorName, humanize.Time(head.AuthoredAt))
	}

	return w.Flush()
}

func runRepoBranches(cmd *cobra.Command, args []string) error {
	_, service, err := openStorage(cmd)
	if err != nil {
		return err
	}

	branches, err := service.Branches(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	for _, branch := range branches {
		marker := " "
		if branch.IsDefault {
			marker = "*"
		}

		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n",
			marker, branch.ShortName, branch.LastCommitShortID,
			humanize.Time(branch.LastCommitDate), branch.LastCommitMessage)
	}

	return w.Flush()
}
