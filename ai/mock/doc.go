// Package mock provides test double implementations of AI service interfaces.
//
// This package contains a mock implementation of ai.Embedder for use in unit
// tests. The mock allows tests to run without external AI services and
// enables controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockEmbedder := mock.NewMockEmbedder()
//	vec, err := mockEmbedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
// The default behavior derives a deterministic unit vector from the text
// hash, so identical texts always embed identically and similarity math
// behaves like it does with real embeddings.
package mock
