package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"studio/internal/domain"
	"studio/internal/generation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a content package",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGenerate,
	}

	cmd.Flags().StringP("user", "u", "", "Owning user ID (required)")
	cmd.Flags().StringP("platform", "p", string(domain.PlatformInstagram), "Comma-separated target platforms (instagram, linkedin)")
	cmd.Flags().String("request-id", "", "Correlation ID for logs")

	_ = cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	platformList, _ := cmd.Flags().GetString("platform")
	requestID, _ := cmd.Flags().GetString("request-id")

	rt, err := openRuntime(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	resp, err := rt.Orchestrator.Handle(cmd.Context(), generation.Input{
		Prompt:    strings.Join(args, " "),
		UserID:    user,
		Platforms: splitPlatforms(platformList),
		RequestID: requestID,
	})
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			_ = printJSON(cmd.ErrOrStderr(), map[string]any{"error": appErr})
		}
		return err
	}
	return writeResponse(cmd, resp)
}

func writeResponse(cmd *cobra.Command, resp *generation.Response) error {
	out := cmd.OutOrStdout()
	if formatFlag != "text" {
		return printJSON(out, resp)
	}

	fmt.Fprintf(out, "project %s: %s\n", resp.ProjectID, resp.Status)
	for _, img := range resp.Images {
		fmt.Fprintf(out, "image   %-9s %s %s\n", img.Platform, img.Dimensions, img.StorageKey)
	}
	for _, v := range resp.Videos {
		fmt.Fprintf(out, "video   %-9s %ds %s\n", v.Platform, v.DurationSeconds, v.StorageKey)
	}
	for platform, captions := range resp.Captions {
		for _, c := range captions {
			fmt.Fprintf(out, "caption %-9s %s\n", platform, c.Content)
		}
	}
	for platform, tags := range resp.Hashtags {
		fmt.Fprintf(out, "tags    %-9s %s\n", platform, strings.Join(tags.Tags, " "))
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(out, "error   %-9s %s %s\n", e.Component, e.ErrorCode, e.ErrorMessage)
	}
	return nil
}

func splitPlatforms(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
