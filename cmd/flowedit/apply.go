package main

import (
	"context"
	"errors"

	"github.com/rendis/flowedit/internal/editscript"
)

func runApply(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("apply")
	dryRun := fs.Bool("dry-run", false, "apply in memory without saving")
	diagram := fs.String("diagram", "", "also print the resulting graph: ascii or mermaid")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: flowedit apply [--dry-run] [--diagram ascii|mermaid] <script.yaml>")
	}

	script, err := editscript.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	rep, err := editscript.Run(ctx, a.deps(), script, editscript.Options{DryRun: *dryRun})
	if rep != nil {
		if werr := writeJSON(a, rep); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		return err
	}
	if *diagram != "" {
		return a.writeDiagram(ctx, rep.Session.Diagram(), *diagram, "")
	}
	return nil
}
