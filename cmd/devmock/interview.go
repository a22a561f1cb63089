package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"devmock"

	"github.com/spf13/cobra"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Take an interactive mock interview",
	Long:  "Take a mock interview on a library topic (--topic-id) or on AI generated questions (--topic). Answers are read from stdin and the result is stored in the history database.",
	RunE:  runInterviewCmd,
}

var (
	interviewTopicID    string
	interviewTopic      string
	interviewCount      int
	interviewDifficulty string
	interviewNoSave     bool
)

func init() {
	interviewCmd.Flags().StringVar(&interviewTopicID, "topic-id", "", "Library topic ID")
	interviewCmd.Flags().StringVarP(&interviewTopic, "topic", "t", "", "Topic for AI generated questions")
	interviewCmd.Flags().IntVarP(&interviewCount, "count", "n", devmock.DefaultQuestionCount, "Number of AI generated questions")
	interviewCmd.Flags().StringVarP(&interviewDifficulty, "difficulty", "d", "", "Difficulty of AI generated questions")
	interviewCmd.Flags().BoolVar(&interviewNoSave, "no-save", false, "Do not record the interview in the history database")
	interviewCmd.MarkFlagsOneRequired("topic-id", "topic")
	interviewCmd.MarkFlagsMutuallyExclusive("topic-id", "topic")

	rootCmd.AddCommand(interviewCmd)
}

func runInterviewCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interview := &devmock.DBInterview{ID: devmock.NewInterviewID()}
	var source devmock.QuestionSource
	var req devmock.GenerationRequest

	if interviewTopicID != "" {
		library, err := devmock.OpenLibrary(cfg.LibraryDir)
		if err != nil {
			return fmt.Errorf("failed to open library: %w", err)
		}
		topic, ok := library.TopicByID(interviewTopicID)
		if !ok {
			return fmt.Errorf("%w: %s", devmock.ErrTopicNotFound, interviewTopicID)
		}
		req = devmock.GenerationRequest{Topic: topic.Title, TopicID: topic.ID, Difficulty: topic.Difficulty}
		source = library
		interview.Source = devmock.SourceLibrary
		interview.NumQuestions = len(topic.FullQuestions)
	} else {
		if cfg.APIKey == "" {
			return errors.New("API key is required. Set GROQ_API_KEY or OPENAI_API_KEY")
		}
		req = devmock.GenerationRequest{
			Topic:        interviewTopic,
			NumQuestions: interviewCount,
			Difficulty:   devmock.ParseDifficulty(interviewDifficulty),
		}
		if err := req.Validate(); err != nil {
			return fmt.Errorf("invalid interview request: %w", err)
		}

		maker := devmock.NewQuestionMakerWithConfig(cfg.MakerConfig())
		logger, err := devmock.NewLLMLogger(cfg.LogDir, interview.ID, req)
		if err != nil {
			log.Printf("Warning: failed to create LLM logger: %v", err)
		} else {
			defer logger.Close()
			maker = maker.WithLogger(logger)
			devmock.VerboseLog("LLM traffic logged to %s", logger.Path())
		}
		source = maker
		interview.Source = devmock.SourceAI
		interview.NumQuestions = req.NumQuestions
	}
	interview.Title = req.Title()
	interview.TopicID = req.TopicID
	interview.Difficulty = req.Difficulty

	var observers []devmock.Observer
	if !interviewNoSave {
		db, err := devmock.OpenDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.CreateInterview(interview); err != nil {
			return err
		}
		observers = append(observers, db.Recorder(interview.ID))
	}

	session := devmock.NewPendingSession(source, req, observers...)
	result, err := runInterview(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	devmock.VerboseLog("Interview %s finished with %d/%d", interview.ID, result.Score, result.Total)
	return nil
}

// runInterview loads the session, offering a retry after each failed fetch,
// then plays it to completion.
func runInterview(ctx context.Context, session *devmock.Session, in io.Reader, out io.Writer) (devmock.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	scanner := bufio.NewScanner(in)

	fmt.Fprintf(out, "🎯 Starting interview on: %s\n", session.State().Title)
	fmt.Fprintln(out, "⏳ Loading questions... (this may take a moment)")

	for {
		loadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		err := session.Load(loadCtx)
		cancel()
		if err == nil {
			break
		}

		state := session.State()
		if state.Failure != nil {
			fmt.Fprintf(out, "\n%s\n\n", state.Failure.DisplayString())
		} else {
			fmt.Fprintf(out, "\n❌ %s\n\n", state.Error)
		}
		if !confirmPrompt(scanner, out, "Retry? (y/n): ") {
			return devmock.Result{}, err
		}
	}

	return playInterview(session, scanner, out)
}

// playInterview asks every question of a ready session on out, reading one
// answer letter per line from scanner. An empty line skips the question.
func playInterview(session *devmock.Session, scanner *bufio.Scanner, out io.Writer) (devmock.Result, error) {
	state := session.State()
	total := len(state.Questions)
	fmt.Fprintf(out, "📝 Questions: %d\n\n", total)

	for state.Phase == devmock.PhaseReady {
		q, _ := state.CurrentQuestion()
		fmt.Fprintf(out, "Question %d/%d:\n", state.CurrentIndex+1, total)
		fmt.Fprintf(out, "%s\n\n", q.Text)
		for i, option := range q.Options {
			fmt.Fprintf(out, "%s) %s\n", optionLetter(i), option)
		}
		fmt.Fprintln(out)

		answered := false
		for {
			fmt.Fprintf(out, "Your answer (%s, empty to skip): ", letterRange(len(q.Options)))
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return devmock.Result{}, fmt.Errorf("failed to read answer: %w", err)
				}
				return devmock.Result{}, io.ErrUnexpectedEOF
			}
			input := strings.ToUpper(strings.TrimSpace(scanner.Text()))
			if input == "" {
				break
			}
			if len(input) == 1 && session.Select(int(input[0]-'A')) {
				answered = session.Confirm()
				break
			}
			fmt.Fprintf(out, "Please enter one of %s\n", letterRange(len(q.Options)))
		}

		fmt.Fprintln(out)
		state = session.State()
		correct := fmt.Sprintf("%s) %s", optionLetter(q.CorrectAnswerIndex), q.Options[q.CorrectAnswerIndex])
		switch {
		case !answered:
			fmt.Fprintf(out, "⏭️  Skipped. The correct answer is %s\n", correct)
		case state.AnsweredCorrectly():
			fmt.Fprintln(out, "✅ Correct!")
		default:
			fmt.Fprintf(out, "❌ Incorrect. The correct answer is %s\n", correct)
		}
		if answered && q.Explanation != "" {
			fmt.Fprintf(out, "💡 Explanation: %s\n", q.Explanation)
		}
		fmt.Fprintf(out, "\n📊 Score: %d/%d\n\n", state.Score, state.CurrentIndex+1)
		fmt.Fprintln(out, strings.Repeat("─", 50))
		fmt.Fprintln(out)

		session.Next()
		state = session.State()
	}

	result := session.Summary()
	fmt.Fprintln(out, "🎉 Interview completed!")
	fmt.Fprintf(out, "🏆 Final score: %d/%d (%d%%)\n", result.Score, result.Total, result.Percentage)
	fmt.Fprintln(out, result.Tier.Feedback())
	return result, nil
}

func confirmPrompt(scanner *bufio.Scanner, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func optionLetter(i int) string {
	return string(rune('A' + i))
}

func letterRange(n int) string {
	if n <= 1 {
		return "A"
	}
	return fmt.Sprintf("A-%s", optionLetter(n-1))
}
