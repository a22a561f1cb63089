package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"devmock"

	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the topics of the bundled questions library",
	RunE:  runTopics,
}

var (
	topicsDifficulty string
	topicsJSON       bool
)

func init() {
	topicsCmd.Flags().StringVarP(&topicsDifficulty, "difficulty", "d", "", "Only list topics of this difficulty (easy, medium, hard or an alias such as junior)")
	topicsCmd.Flags().BoolVar(&topicsJSON, "json", false, "Print topics as JSON")

	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	library, err := devmock.OpenLibrary(cfg.LibraryDir)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}

	topics := library.Topics()
	if topicsDifficulty != "" {
		difficulty := devmock.ParseDifficulty(topicsDifficulty)
		if difficulty == devmock.DifficultyUnspecified {
			return fmt.Errorf("unknown difficulty %q", topicsDifficulty)
		}
		topics = library.TopicsByDifficulty(difficulty)
	}

	if topicsJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(topics)
	}
	printTopics(cmd.OutOrStdout(), topics)
	return nil
}

func printTopics(out io.Writer, topics []devmock.Topic) {
	if len(topics) == 0 {
		fmt.Fprintln(out, "No topics found.")
		return
	}
	for _, t := range topics {
		fmt.Fprintf(out, "%-24s %s [%s, %s] %d questions\n", t.ID, t.Title, t.Category, t.Difficulty, len(t.FullQuestions))
		if len(t.Tags) > 0 {
			fmt.Fprintf(out, "%-24s tags: %s\n", "", strings.Join(t.Tags, ", "))
		}
	}
}
