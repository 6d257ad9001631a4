package main

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/ead/core/discipline"
)

func (cli *commandLine) evaluateCmd() *cobra.Command {
	var snap discipline.ContentSnapshot
	var input string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the completeness of a content snapshot given as flags or as --json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input != "" {
				var data discipline.SnapshotInput
				if err := json.Unmarshal([]byte(input), &data); err != nil {
					return &discipline.InvalidSnapshotError{Field: "json", Reason: "is malformed"}
				}
				var err error
				if snap, err = data.ToSnapshot(); err != nil {
					return err
				}
			}
			return cli.evaluate(snap)
		},
	}

	cmd.Flags().IntVar(&snap.VideoCount, "videos", 0, "Number of videos")
	cmd.Flags().BoolVar(&snap.HasEbook, "ebook", false, "The standard e-book is set")
	cmd.Flags().BoolVar(&snap.HasInteractiveEbook, "interactive-ebook", false, "The interactive e-book is set")
	cmd.Flags().IntVar(&snap.SimuladoQuestionCount, "simulado", 0, "Number of simulado questions")
	cmd.Flags().IntVar(&snap.AvaliacaoFinalQuestionCount, "final", 0, "Number of final assessment questions")
	cmd.Flags().StringVar(&input, "json", "", `Snapshot as JSON, e.g. {"videoCount":1,"hasEbook":true,...}`)
	cmd.MarkFlagsMutuallyExclusive("json", "videos")
	cmd.MarkFlagsMutuallyExclusive("json", "ebook")
	cmd.MarkFlagsMutuallyExclusive("json", "interactive-ebook")
	cmd.MarkFlagsMutuallyExclusive("json", "simulado")
	cmd.MarkFlagsMutuallyExclusive("json", "final")
	return cmd
}

func (cli *commandLine) evaluate(snap discipline.ContentSnapshot) error {
	report, err := discipline.Evaluate(snap)
	if err != nil {
		return errors.Wrap(err, "evaluating snapshot")
	}
	return cli.printJSON(report)
}
