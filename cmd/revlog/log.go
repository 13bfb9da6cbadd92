package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onexay/revwalk/internal/diff"
	"github.com/onexay/revwalk/internal/service"
	"github.com/onexay/revwalk/internal/storage"
	"github.com/onexay/revwalk/internal/walk"
)

const dateLayout = "Mon Jan 2 15:04:05 2006 -0700"

type logOptions struct {
	exclude          []string
	maxCount         int
	since            string
	until            string
	reverse          bool
	follow           bool
	nameStatus       bool
	patch            bool
	findCopiesHarder bool
}

func newLogCmd() *cobra.Command {
	var opts logOptions
	cmd := &cobra.Command{
		Use:   "log [<revision>...] [-- <path>...]",
		Short: "Show commit history",
		Long: `Show the commits reachable from the given revisions, newest first.
A revision prefixed with ^ excludes its history. Paths after -- restrict the
output to commits touching them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			revs, paths := args, []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				revs, paths = args[:dash], args[dash:]
			}
			return runLog(cmd, opts, revs, paths)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.exclude, "exclude", nil, "exclude history reachable from these revisions")
	f.IntVarP(&opts.maxCount, "max-count", "n", 0, "limit the number of commits shown; negative means no limit")
	f.StringVar(&opts.since, "since", "", "show commits newer than this date or unix time")
	f.StringVar(&opts.until, "until", "", "show commits older than this date or unix time")
	f.BoolVar(&opts.reverse, "reverse", false, "show the oldest commit first")
	f.BoolVar(&opts.follow, "follow", false, "follow paths across renames")
	f.BoolVar(&opts.nameStatus, "name-status", false, "show the status and names of changed files")
	f.BoolVarP(&opts.patch, "patch", "p", false, "show a unified diff for each commit")
	f.BoolVar(&opts.findCopiesHarder, "find-copies-harder", false, "consider unmodified files as copy sources")
	return cmd
}

func runLog(cmd *cobra.Command, opts logOptions, revs, paths []string) error {
	ctx := cmd.Context()
	repo, cfg, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	if len(revs) == 0 {
		revs = []string{"HEAD"}
	}
	walkOpts := walk.Options{
		Paths:   paths,
		Follow:  opts.follow,
		Reverse: opts.reverse,
	}
	if cfg.Walk.MaxEntries > 0 {
		walkOpts.MaxEntries = walk.Limit(cfg.Walk.MaxEntries)
	}
	if cmd.Flags().Changed("max-count") {
		walkOpts.MaxEntries = nil
		if opts.maxCount >= 0 {
			walkOpts.MaxEntries = walk.Limit(opts.maxCount)
		}
	}
	excludes := append([]string(nil), opts.exclude...)
	for _, rev := range revs {
		if excluded, ok := strings.CutPrefix(rev, "^"); ok {
			excludes = append(excludes, excluded)
			continue
		}
		id, err := service.ResolveRevision(ctx, repo, rev)
		if err != nil {
			return err
		}
		walkOpts.Include = append(walkOpts.Include, id)
	}
	for _, rev := range excludes {
		id, err := service.ResolveRevision(ctx, repo, rev)
		if err != nil {
			return err
		}
		walkOpts.Exclude = append(walkOpts.Exclude, id)
	}
	if walkOpts.Since, err = service.ParseTime(opts.since); err != nil {
		return fmt.Errorf("--since: %w", err)
	}
	if walkOpts.Until, err = service.ParseTime(opts.until); err != nil {
		return fmt.Errorf("--until: %w", err)
	}

	walkCfg := cfg.Walk
	walkCfg.FindCopiesHarder = walkCfg.FindCopiesHarder || opts.findCopiesHarder
	if len(paths) > 0 || opts.nameStatus || opts.patch {
		walkOpts.RenameDetector = service.NewRenameDetector(repo, walkCfg)
	}

	walker, err := walk.New(ctx, repo, walkOpts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return walker.ForEach(ctx, func(e *walk.Entry) error {
		return printEntry(ctx, out, repo, e, opts)
	})
}

func printEntry(ctx context.Context, out io.Writer, repo storage.ObjectReader, e *walk.Entry, opts logOptions) error {
	c := e.Commit
	fmt.Fprintf(out, "commit %s\n", c.ID)
	if c.IsMerge() {
		short := make([]string, 0, len(c.Parents))
		for _, p := range c.Parents {
			short = append(short, shortID(p))
		}
		fmt.Fprintf(out, "Merge: %s\n", strings.Join(short, " "))
	}
	if c.Author != "" {
		fmt.Fprintf(out, "Author: %s\n", c.Author)
	}
	fmt.Fprintf(out, "Date:   %s\n\n", time.Unix(c.CommitTime, 0).UTC().Format(dateLayout))
	for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
	fmt.Fprintln(out)

	if opts.nameStatus {
		changes, err := e.Changes(ctx)
		if err != nil {
			return err
		}
		list := changes.Single()
		if changes.IsMerge() {
			list = changes.PerParent()[0]
		}
		for _, ch := range list {
			fmt.Fprintln(out, nameStatus(ch))
		}
		if len(list) > 0 {
			fmt.Fprintln(out)
		}
	}
	if opts.patch {
		text, err := service.PatchText(ctx, repo, e)
		if err != nil {
			return err
		}
		if text != "" {
			fmt.Fprintln(out, text)
		}
	}
	return nil
}

func nameStatus(c diff.Change) string {
	switch c.Type {
	case diff.ChangeAdd:
		return "A\t" + c.New.Path
	case diff.ChangeDelete:
		return "D\t" + c.Old.Path
	case diff.ChangeRename:
		return "R\t" + c.Old.Path + "\t" + c.New.Path
	case diff.ChangeCopy:
		return "C\t" + c.Old.Path + "\t" + c.New.Path
	default:
		return "M\t" + c.Path()
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
