package devmock

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// TestSessionFeatures runs the interview session scenarios in features/
func TestSessionFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "interview-session",
		ScenarioInitializer: initializeSessionScenario,
		Options: &godog.Options{
			Format:   "progress",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

type sessionFeatureState struct {
	questions []Question
	session   *Session
	loadErr   error
}

func initializeSessionScenario(ctx *godog.ScenarioContext) {
	state := &sessionFeatureState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*state = sessionFeatureState{}
		return ctx, nil
	})

	ctx.Step(`^an interview with questions whose correct options are ([\d, ]+)$`, state.givenInterview)
	ctx.Step(`^a question source that fails once with "([^"]+)"$`, state.givenFailingSource)
	ctx.Step(`^I select option (\d+)$`, state.selectOption)
	ctx.Step(`^I confirm$`, state.confirm)
	ctx.Step(`^I move to the next question$`, state.next)
	ctx.Step(`^I answer option (\d+)$`, state.answerOption)
	ctx.Step(`^the interview loads$`, state.load)
	ctx.Step(`^I retry loading$`, state.retry)
	ctx.Step(`^the interview is completed$`, state.isCompleted)
	ctx.Step(`^the interview is ready with (\d+) questions$`, state.isReady)
	ctx.Step(`^the interview failed with "([^"]+)"$`, state.failedWith)
	ctx.Step(`^the score is (\d+) out of (\d+)$`, state.scoreIs)
	ctx.Step(`^the percentage is (\d+)$`, state.percentageIs)
	ctx.Step(`^the feedback is "([^"]+)"$`, state.feedbackIs)
	ctx.Step(`^the answer is revealed$`, state.isRevealed)
	ctx.Step(`^the selected option is (\d+)$`, state.selectedIs)
}

func (s *sessionFeatureState) givenInterview(list string) error {
	s.questions = nil
	for i, part := range strings.Split(list, ",") {
		correct, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return err
		}
		s.questions = append(s.questions, Question{
			Text:               fmt.Sprintf("Question %d", i+1),
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: correct,
		})
	}
	s.session = NewSession("Feature", s.questions)
	return nil
}

func (s *sessionFeatureState) givenFailingSource(message string) error {
	calls := 0
	source := SourceFunc(func(context.Context, GenerationRequest) ([]Question, error) {
		calls++
		if calls == 1 {
			return nil, ClassifyMessage(message)
		}
		return s.questions, nil
	})
	s.session = NewPendingSession(source, GenerationRequest{Topic: "Feature"})
	return nil
}

func (s *sessionFeatureState) selectOption(option int) error {
	s.session.Select(option)
	return nil
}

func (s *sessionFeatureState) confirm() error {
	s.session.Confirm()
	return nil
}

func (s *sessionFeatureState) next() error {
	s.session.Next()
	return nil
}

func (s *sessionFeatureState) answerOption(option int) error {
	if !s.session.Select(option) {
		return fmt.Errorf("option %d could not be selected", option)
	}
	if !s.session.Confirm() {
		return fmt.Errorf("answer could not be confirmed")
	}
	s.session.Next()
	return nil
}

func (s *sessionFeatureState) load() error {
	s.loadErr = s.session.Load(context.Background())
	return nil
}

func (s *sessionFeatureState) retry() error {
	s.loadErr = s.session.Retry(context.Background())
	return nil
}

func (s *sessionFeatureState) isCompleted() error {
	if phase := s.session.State().Phase; phase != PhaseCompleted {
		return fmt.Errorf("expected completed, got %s", phase)
	}
	return nil
}

func (s *sessionFeatureState) isReady(count int) error {
	state := s.session.State()
	if state.Phase != PhaseReady {
		return fmt.Errorf("expected ready, got %s (%v)", state.Phase, s.loadErr)
	}
	if len(state.Questions) != count {
		return fmt.Errorf("expected %d questions, got %d", count, len(state.Questions))
	}
	return nil
}

func (s *sessionFeatureState) failedWith(title string) error {
	state := s.session.State()
	if state.Phase != PhaseErrored || state.Failure == nil {
		return fmt.Errorf("expected a failed load, got %s", state.Phase)
	}
	if state.Failure.Title != title {
		return fmt.Errorf("expected failure %q, got %q", title, state.Failure.Title)
	}
	return nil
}

func (s *sessionFeatureState) scoreIs(score, total int) error {
	result := s.session.Summary()
	if result.Score != score || result.Total != total {
		return fmt.Errorf("expected %d/%d, got %d/%d", score, total, result.Score, result.Total)
	}
	return nil
}

func (s *sessionFeatureState) percentageIs(pct int) error {
	if got := s.session.Summary().Percentage; got != pct {
		return fmt.Errorf("expected %d%%, got %d%%", pct, got)
	}
	return nil
}

func (s *sessionFeatureState) feedbackIs(feedback string) error {
	if got := s.session.Summary().Tier.Feedback(); got != feedback {
		return fmt.Errorf("expected feedback %q, got %q", feedback, got)
	}
	return nil
}

func (s *sessionFeatureState) isRevealed() error {
	if !s.session.State().Revealed {
		return fmt.Errorf("expected the answer to be revealed")
	}
	return nil
}

func (s *sessionFeatureState) selectedIs(option int) error {
	selected := s.session.State().SelectedOption
	if selected == nil || *selected != option {
		return fmt.Errorf("expected option %d to be selected, got %v", option, selected)
	}
	return nil
}
