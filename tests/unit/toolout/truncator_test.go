package toolout_test

import (
	"context"
	"strings"
	"testing"

	"github.com/easyops/contextengine-go/pkg/token"
	"github.com/easyops/contextengine-go/pkg/toolout"
)

func newTruncator(opts ...toolout.Option) *toolout.Truncator {
	base := []toolout.Option{toolout.WithCounter(token.NewEstimatedCounter())}
	return toolout.NewTruncator(append(base, opts...)...)
}

func TestTruncate_NilPayload(t *testing.T) {
	tr := newTruncator()

	result := tr.Truncate(context.Background(), "any_tool", nil)
	if result == nil {
		t.Fatal("expected non-nil result for nil payload")
	}
	if value, ok := result["result"]; !ok || value != nil {
		t.Errorf("expected {result: nil}, got %v", result)
	}
}

func TestTruncate_ScalarPayload(t *testing.T) {
	tr := newTruncator()

	result := tr.Truncate(context.Background(), "any_tool", 42)
	if result["result"] != 42 {
		t.Errorf("expected scalar wrapped under 'result', got %v", result)
	}
}

func TestTruncate_ListPayload(t *testing.T) {
	tr := newTruncator()

	result := tr.Truncate(context.Background(), "any_tool", []interface{}{"a", "b"})
	list, ok := result["result"].([]interface{})
	if !ok || len(list) != 2 {
		t.Errorf("expected list wrapped under 'result', got %v", result)
	}
}

func TestTruncate_EmptyShapes(t *testing.T) {
	tr := newTruncator()

	// Never raises for empty dict, empty list, or deeply nested input
	shapes := []interface{}{
		map[string]interface{}{},
		[]interface{}{},
		map[string]interface{}{
			"deep": map[string]interface{}{
				"deeper": []interface{}{
					map[string]interface{}{"deepest": []interface{}{nil, 1, "x"}},
				},
			},
		},
	}

	for _, shape := range shapes {
		result := tr.Truncate(context.Background(), "any_tool", shape)
		if result == nil {
			t.Fatalf("expected non-nil result for shape %v", shape)
		}
	}
}

func TestTruncate_SmallPayloadUntouched(t *testing.T) {
	tr := newTruncator()

	payload := map[string]interface{}{"status": "ok"}
	result := tr.Truncate(context.Background(), "vector_search", payload)

	if _, ok := result[toolout.MetaTruncated]; ok {
		t.Error("payload within budget should carry no truncation metadata")
	}
	if result["status"] != "ok" {
		t.Error("payload within budget should be returned unchanged")
	}
}

func TestTruncate_CapsPrimaryList(t *testing.T) {
	tr := newTruncator()

	items := make([]interface{}, 20)
	for i := range items {
		items[i] = map[string]interface{}{"content": strings.Repeat("x", 600)}
	}
	payload := map[string]interface{}{"results": items}

	result := tr.Truncate(context.Background(), "vector_search", payload)

	list, ok := result["results"].([]interface{})
	if !ok {
		t.Fatal("expected results list in output")
	}
	// vector_search profile caps the list at 8 items
	if len(list) != 8 {
		t.Errorf("expected 8 items, got %d", len(list))
	}
	if result[toolout.MetaOriginalCount] != 20 {
		t.Errorf("expected _original_count 20, got %v", result[toolout.MetaOriginalCount])
	}
	if result[toolout.MetaTruncated] != true {
		t.Error("expected _truncated flag set")
	}

	// Text fields inside items clipped to the char limit plus ellipsis
	item := list[0].(map[string]interface{})
	content := item["content"].(string)
	if !strings.HasSuffix(content, "...") {
		t.Error("expected clipped content to end with ellipsis")
	}
	if len([]rune(content)) > 403 {
		t.Errorf("content length %d exceeds char limit", len([]rune(content)))
	}
}

func TestTruncate_ClipsTopLevelText(t *testing.T) {
	tr := newTruncator()

	payload := map[string]interface{}{"content": strings.Repeat("y", 20000)}
	result := tr.Truncate(context.Background(), "read_file", payload)

	content, ok := result["content"].(string)
	if !ok {
		t.Fatal("expected content string in output")
	}
	// read_file clips content to 8000 chars
	if len([]rune(content)) > 8003 {
		t.Errorf("content length %d exceeds char limit", len([]rune(content)))
	}
	if result[toolout.MetaTruncated] != true {
		t.Error("expected _truncated flag set")
	}
}

func TestTruncate_HardTruncationStub(t *testing.T) {
	tr := newTruncator()

	// A single huge non-text field defeats the structural tiers; the
	// serialized hard-truncation falls back to the descriptive stub.
	payload := map[string]interface{}{"data": strings.Repeat("z", 40000)}
	result := tr.Truncate(context.Background(), "execute_command", payload)

	if result[toolout.MetaTruncated] != true {
		t.Error("expected _truncated flag set")
	}
	if result["tool"] != "execute_command" {
		t.Errorf("expected stub to name the tool, got %v", result["tool"])
	}
	if _, ok := result["original_tokens"]; !ok {
		t.Error("expected stub to record the original size")
	}
}

func TestTruncate_NestedListsCapped(t *testing.T) {
	tr := newTruncator(toolout.WithProfile("nested_tool", toolout.Profile{
		MaxTokens: 50,
	}))

	inner := make([]interface{}, 10)
	for i := range inner {
		inner[i] = strings.Repeat("w", 40)
	}
	payload := map[string]interface{}{
		"first":  append([]interface{}{}, inner...),
		"second": append([]interface{}{}, inner...),
	}

	result := tr.Truncate(context.Background(), "nested_tool", payload)

	for _, field := range []string{"first", "second"} {
		if list, ok := result[field].([]interface{}); ok && len(list) > 3 {
			t.Errorf("field %q should be capped to 3 items, got %d", field, len(list))
		}
	}
}

func TestTruncate_DoesNotMutateInput(t *testing.T) {
	tr := newTruncator()

	items := make([]interface{}, 20)
	for i := range items {
		items[i] = map[string]interface{}{"content": strings.Repeat("x", 600)}
	}
	payload := map[string]interface{}{"results": items}

	tr.Truncate(context.Background(), "vector_search", payload)

	if len(payload["results"].([]interface{})) != 20 {
		t.Error("input list should not be mutated")
	}
	first := payload["results"].([]interface{})[0].(map[string]interface{})
	if len(first["content"].(string)) != 600 {
		t.Error("input text fields should not be mutated")
	}
}

func TestTruncate_UnknownToolUsesFallback(t *testing.T) {
	tr := newTruncator()

	items := make([]interface{}, 30)
	for i := range items {
		items[i] = map[string]interface{}{"content": strings.Repeat("x", 700)}
	}
	payload := map[string]interface{}{"results": items}

	result := tr.Truncate(context.Background(), "never_configured", payload)

	list, ok := result["results"].([]interface{})
	if !ok {
		t.Fatal("expected results list in output")
	}
	// Fallback profile caps at 10 items
	if len(list) != 10 {
		t.Errorf("expected 10 items from fallback profile, got %d", len(list))
	}
}
