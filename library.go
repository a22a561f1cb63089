package devmock

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Library is the bundled questions library: a set of topics, each carrying
// its own full question list.
type Library struct {
	topics []Topic
	byID   map[string]int
}

// NewLibrary builds a library from already decoded topics
func NewLibrary(topics []Topic) *Library {
	l := &Library{
		topics: make([]Topic, 0, len(topics)),
		byID:   make(map[string]int, len(topics)),
	}
	for _, t := range topics {
		if t.AccentColor == "" {
			t.AccentColor = DefaultAccentColor
		}
		l.byID[t.ID] = len(l.topics)
		l.topics = append(l.topics, t)
	}
	return l
}

// OpenLibrary loads every topic bundle in dir
func OpenLibrary(dir string) (*Library, error) {
	return LoadLibrary(os.DirFS(dir))
}

// LoadLibrary loads topic bundles (*.json, *.yaml, *.yml) from the root of
// fsys, in file name order. A bundle without an id takes its file name stem.
func LoadLibrary(fsys fs.FS) (*Library, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read library directory: %w", err)
	}

	var topics []Topic
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(path.Ext(name))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read topic %s: %w", name, err)
		}

		topic, err := parseTopic(data, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to parse topic %s: %w", name, err)
		}
		if topic.ID == "" {
			topic.ID = strings.TrimSuffix(name, path.Ext(name))
		}
		topics = append(topics, topic)
	}

	VerboseLog("Loaded %d topics from library", len(topics))
	return NewLibrary(topics), nil
}

func parseTopic(data []byte, ext string) (Topic, error) {
	var topic Topic
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &topic)
	} else {
		err = yaml.Unmarshal(data, &topic)
	}
	if err != nil {
		return Topic{}, err
	}

	for i := range topic.FullQuestions {
		if err := topic.FullQuestions[i].Validate(); err != nil {
			return Topic{}, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return topic, nil
}

// Topics returns every topic in load order
func (l *Library) Topics() []Topic {
	out := make([]Topic, len(l.topics))
	copy(out, l.topics)
	return out
}

// TopicsByDifficulty returns topics of one canonical difficulty
func (l *Library) TopicsByDifficulty(d Difficulty) []Topic {
	var out []Topic
	for _, t := range l.topics {
		if t.Difficulty == d {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct topic categories, sorted
func (l *Library) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range l.topics {
		if t.Category != "" && !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	sort.Strings(out)
	return out
}

// TopicByID looks a topic up by identifier
func (l *Library) TopicByID(id string) (Topic, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Topic{}, false
	}
	return l.topics[i], true
}

// QuestionsByTopicID returns the topic's full question list as bundled
func (l *Library) QuestionsByTopicID(id string) ([]Question, error) {
	topic, ok := l.TopicByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, id)
	}
	questions := make([]Question, len(topic.FullQuestions))
	copy(questions, topic.FullQuestions)
	return questions, nil
}

// Questions implements QuestionSource using req.TopicID
func (l *Library) Questions(_ context.Context, req GenerationRequest) ([]Question, error) {
	return l.QuestionsByTopicID(req.TopicID)
}
