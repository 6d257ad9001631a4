package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/ead/core/media"
)

func (cli *commandLine) resolveCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "resolve URL",
		Short: "Print the playback descriptor of a media URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := cli.resolver.Resolve(args[0], media.ParseDeclaredSource(source))
			if source != "" && !d.AgreesWith(media.ParseDeclaredSource(source)) {
				cmd.PrintErrf("warning: detected %s but the declared source is %s\n", d.Provider, source)
			}
			return cli.printJSON(d)
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "Declared source hint (youtube, vimeo, onedrive, google_drive, upload, other)")
	return cmd
}
