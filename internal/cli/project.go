package cli

import (
	"github.com/spf13/cobra"

	"studio/internal/generation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "project <id>",
		Short: "Show a stored project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProject,
	}
	RootCmd.AddCommand(cmd)
}

func runProject(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	project, err := rt.Projects.GetByID(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return writeResponse(cmd, generation.BuildResponse(project, rt.Files, rt.Config.PresignTTL, &rt.Logger))
}
