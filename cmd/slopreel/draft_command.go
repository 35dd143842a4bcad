package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"slopreel/internal/scenes"
	"slopreel/internal/services/llm"
	"slopreel/internal/workspace"
)

func newDraftCommand(ctx *commandContext) *cobra.Command {
	var (
		topic   string
		count   int
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft a scene file for a topic with the LLM",
		RunE: func(cmd *cobra.Command, args []string) error {
			topic = strings.TrimSpace(topic)
			if topic == "" {
				return fmt.Errorf("--topic is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireLLMCredentials(); err != nil {
				return err
			}

			list, err := newLLMClient(cfg).DraftScenes(cmd.Context(), topic, count)
			if err != nil {
				return fmt.Errorf("draft scenes: %w", err)
			}

			target := strings.TrimSpace(outPath)
			if target == "" {
				target = workspace.Slug(topic) + ".yaml"
			}
			target, err = filepath.Abs(target)
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			if err := scenes.SaveFile(target, scenes.Document{Topic: topic, Scenes: list}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(list))
			for _, s := range list {
				rows = append(rows, []string{fmt.Sprintf("%d", s.Index+1), truncate(s.Script, 60), truncate(s.ImageDescription, 48)})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Script", "Image"}, rows, []columnAlignment{alignRight}))
			fmt.Fprintf(out, "Wrote %d scenes to %s\n", len(list), target)
			fmt.Fprintf(out, "Next: slopreel generate %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "What the video is about")
	cmd.Flags().IntVarP(&count, "scenes", "n", 6, fmt.Sprintf("Number of scenes (%d-%d)", llm.MinDraftScenes, llm.MaxDraftScenes))
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Scene file to write (default <topic-slug>.yaml)")
	return cmd
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if limit <= 3 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
