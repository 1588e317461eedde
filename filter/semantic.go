// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package filter

import (
	"context"
	"log/slog"
	"sort"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
)

// Matcher scores message text against topics by embedding both and comparing
// with cosine similarity. Vectors are normalized before comparison, so the
// similarity reduces to a dot product clipped to [0, 1].
//
// Matcher is stateless apart from its embedder and safe for concurrent use
// when the embedder is.
type Matcher struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewMatcher creates a semantic matcher backed by the given embedder.
// Wrap the embedder in an ai.CachingEmbedder to avoid re-embedding topic
// lists on every message.
func NewMatcher(embedder ai.Embedder) *Matcher {
	return &Matcher{
		embedder: embedder,
		logger:   slog.Default().With("component", "semantic-matcher"),
	}
}

// MatchTextToTopic scores one text against one topic.
func (m *Matcher) MatchTextToTopic(ctx context.Context, text string, topic core.Topic) (float32, error) {
	textVec, err := m.embedder.EmbedText(ctx, text)
	if err != nil {
		return 0, err
	}

	topicVec, err := m.embedder.EmbedText(ctx, topic.Text)
	if err != nil {
		return 0, err
	}

	return CosineSimilarity(NormalizeVector(textVec), NormalizeVector(topicVec)), nil
}

// MatchTextToTopics scores text against every topic and returns all results
// ordered by descending score. Equal scores keep the topics' input order.
// An empty topic list yields an empty result.
func (m *Matcher) MatchTextToTopics(ctx context.Context, text string, topics []core.Topic) ([]core.MatchResult, error) {
	if len(topics) == 0 {
		return nil, nil
	}

	textVec, err := m.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	textVec = NormalizeVector(textVec)

	topicTexts := make([]string, len(topics))
	for i, t := range topics {
		topicTexts[i] = t.Text
	}

	topicVecs, err := m.embedder.EmbedTexts(ctx, topicTexts)
	if err != nil {
		return nil, err
	}

	results := make([]core.MatchResult, len(topics))
	for i, t := range topics {
		results[i] = core.MatchResult{
			TopicId: t.Id,
			Topic:   t.Text,
			Score:   CosineSimilarity(textVec, NormalizeVector(topicVecs[i])),
		}
	}

	// Stable sort keeps input order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// BatchMatch scores every text against every topic. The returned map is
// keyed by input text; each value is ordered exactly as MatchTextToTopics
// would order it, and scores are identical to the single-text path.
func (m *Matcher) BatchMatch(ctx context.Context, texts []string, topics []core.Topic) (map[string][]core.MatchResult, error) {
	out := make(map[string][]core.MatchResult, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	for _, text := range texts {
		results, err := m.MatchTextToTopics(ctx, text, topics)
		if err != nil {
			return nil, err
		}
		out[text] = results
	}

	return out, nil
}
