package commands

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonic/render"
)

func newSchemaCommand() *cobra.Command {
	var key bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of analysis results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key {
				return render.JSON(cmd.OutOrStdout(), render.KeySchema())
			}
			return render.JSON(cmd.OutOrStdout(), render.Schema())
		},
	}

	cmd.Flags().BoolVar(&key, "key", false, "print the schema of the chords command output instead")

	return cmd
}
