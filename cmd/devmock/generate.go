package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"devmock"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate interview questions with the AI model and print them as JSON",
	RunE:  runGenerate,
}

var (
	generateTopic      string
	generateCount      int
	generateDifficulty string
	generateOutput     string
)

func init() {
	generateCmd.Flags().StringVarP(&generateTopic, "topic", "t", "", "Interview topic (required)")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", devmock.DefaultQuestionCount, "Number of questions to generate")
	generateCmd.Flags().StringVarP(&generateDifficulty, "difficulty", "d", "", "Difficulty level (easy, medium, hard)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file for the questions JSON (default: stdout)")

	if err := generateCmd.MarkFlagRequired("topic"); err != nil {
		panic(fmt.Sprintf("failed to mark topic flag as required: %v", err))
	}

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return errors.New("API key is required. Set GROQ_API_KEY or OPENAI_API_KEY")
	}

	req := devmock.GenerationRequest{
		Topic:        generateTopic,
		NumQuestions: generateCount,
		Difficulty:   devmock.ParseDifficulty(generateDifficulty),
	}

	if devmock.IsVerbose() {
		log.Printf("Starting question generation for topic: %s", req.Topic)
		log.Printf("Target questions: %d, Difficulty: %s, Model: %s", req.NumQuestions, req.Difficulty, cfg.Model)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	maker := devmock.NewQuestionMakerWithConfig(cfg.MakerConfig())
	questions, err := maker.GenerateQuestions(ctx, req)
	if err != nil {
		var aiErr *devmock.AIError
		if errors.As(err, &aiErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), aiErr.DisplayString())
		}
		return fmt.Errorf("failed to generate questions: %w", err)
	}

	output, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	if generateOutput != "" {
		if err := os.WriteFile(generateOutput, output, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Printf("Questions saved to: %s", generateOutput)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return nil
}
