package cli

import (
	"context"
	"fmt"

	"github.com/conorfennell/knolboard/internal/importer"
)

func runImport(ctx context.Context, e *env, args []string) error {
	fs := newFlags("import")
	prune := fs.Bool("prune", false, "delete cards whose markdown was removed")
	all := fs.Bool("all", false, "re-import every known source")
	if err := parse(fs, args); err != nil {
		return err
	}

	im := importer.New(e.client, e.db, importer.Options{
		ReposDir: e.cfg.ReposDir,
		Progress: e.errOut,
		Logger:   e.logger,
	})

	if *all {
		if fs.NArg() != 0 {
			return fmt.Errorf("%w: import --all takes no arguments", ErrUsage)
		}
		reports, err := im.ImportAll(ctx, *prune)
		for _, r := range reports {
			printReport(e, r)
		}
		if len(reports) == 0 && err == nil {
			e.printf("No sources imported yet\n")
		}
		return err
	}

	if fs.NArg() != 2 {
		return fmt.Errorf("%w: import [--prune] <deck-id> <directory|git-url>", ErrUsage)
	}
	report, err := im.Import(ctx, fs.Arg(0), fs.Arg(1), *prune)
	if report != nil {
		printReport(e, report)
	}
	return err
}

func printReport(e *env, r *importer.Report) {
	e.printf("%s -> deck %s: %d files, %d cards, %d created, %d unchanged",
		r.Source, r.DeckID, r.Files, r.Parsed, r.Created, r.Skipped)
	if r.Pruned > 0 {
		e.printf(", %d pruned", r.Pruned)
	}
	if r.Failed > 0 {
		e.printf(", %d failed", r.Failed)
	}
	e.printf("\n")
	for _, err := range r.Errors {
		e.printf("  %v\n", err)
	}
}
