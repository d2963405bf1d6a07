package token_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/easyops/contextengine-go/pkg/token"
)

// wideCodec counts one token per rune but packs two runes into each
// encoded token, so decoding a token prefix yields text that counts
// longer than the prefix length. Exercises the re-encode backoff.
type wideCodec struct{}

func (wideCodec) Count(text string) int {
	return len([]rune(text))
}

func (wideCodec) CountValue(v interface{}) int {
	data, _ := json.Marshal(v)
	return len([]rune(string(data)))
}

func (wideCodec) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, 0, (len(runes)+1)/2)
	for i := 0; i < len(runes); i += 2 {
		tok := int(runes[i]) << 21
		if i+1 < len(runes) {
			tok |= int(runes[i+1])
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func (wideCodec) Decode(tokens []int) string {
	runes := make([]rune, 0, len(tokens)*2)
	for _, tok := range tokens {
		runes = append(runes, rune(tok>>21))
		if low := tok & (1<<21 - 1); low != 0 {
			runes = append(runes, rune(low))
		}
	}
	return string(runes)
}

func TestTruncateText_WithinBudget(t *testing.T) {
	counter := token.NewEstimatedCounter()

	text := "short text"
	result := token.TruncateText(counter, text, 100)
	if result != text {
		t.Errorf("TruncateText should be a no-op within budget, got %q", result)
	}
}

func TestTruncateText_ZeroBudget(t *testing.T) {
	counter := token.NewEstimatedCounter()

	if result := token.TruncateText(counter, "some text", 0); result != "" {
		t.Errorf("TruncateText with zero budget should return empty string, got %q", result)
	}
}

func TestTruncateText_ResultWithinBudget(t *testing.T) {
	counter := token.NewEstimatedCounter()

	tests := []struct {
		name      string
		text      string
		maxTokens int
	}{
		{"long ascii", strings.Repeat("a", 400), 10},
		{"long words", strings.Repeat("word ", 200), 25},
		{"tight budget", strings.Repeat("x", 1000), 1},
		{"generous budget", strings.Repeat("y", 1000), 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := token.TruncateText(counter, tt.text, tt.maxTokens)
			if got := counter.Count(result); got > tt.maxTokens {
				t.Errorf("count(truncate_text(s, %d)) = %d, want <= %d", tt.maxTokens, got, tt.maxTokens)
			}
		})
	}
}

func TestTruncateText_AppendsMarker(t *testing.T) {
	counter := token.NewEstimatedCounter()

	text := strings.Repeat("a", 400)
	result := token.TruncateText(counter, text, 10)

	if result == "" {
		t.Fatal("expected non-empty truncated text")
	}
	if !strings.HasSuffix(result, token.TruncationMarker) {
		t.Errorf("truncated text should end with marker, got %q", result)
	}
}

func TestTruncateText_BudgetBelowMarker(t *testing.T) {
	// Budget smaller than the marker's own token length: the result
	// must still re-count within budget even when decoded tokens
	// inflate on re-encoding.
	counter := wideCodec{}

	text := strings.Repeat("a", 20)
	for _, maxTokens := range []int{1, 2, 3, 4} {
		result := token.TruncateText(counter, text, maxTokens)
		if got := counter.Count(result); got > maxTokens {
			t.Errorf("count(truncate_text(s, %d)) = %d, want <= %d", maxTokens, got, maxTokens)
		}
		if strings.Contains(result, token.TruncationMarker) {
			t.Errorf("budget %d cannot fit the marker, got %q", maxTokens, result)
		}
	}
}

func TestTruncateText_CodecMarkerBudget(t *testing.T) {
	counter := wideCodec{}

	text := strings.Repeat("a", 20)
	result := token.TruncateText(counter, text, 15)

	if got := counter.Count(result); got > 15 {
		t.Errorf("count = %d, want <= 15", got)
	}
	if !strings.HasSuffix(result, token.TruncationMarker) {
		t.Errorf("marker fits in budget 15, got %q", result)
	}
}

func TestClipText_NoMarker(t *testing.T) {
	counter := token.NewEstimatedCounter()

	text := strings.Repeat("a", 400)
	result := token.ClipText(counter, text, 10)

	if strings.Contains(result, token.TruncationMarker) {
		t.Errorf("ClipText must not append the marker, got %q", result)
	}
	if !strings.HasPrefix(text, result) {
		t.Error("ClipText result should be a pure prefix of the input")
	}
	if got := counter.Count(result); got > 10 {
		t.Errorf("count = %d, want <= 10", got)
	}
}

func TestClipText_WithinBudget(t *testing.T) {
	counter := token.NewEstimatedCounter()

	text := "short text"
	if result := token.ClipText(counter, text, 100); result != text {
		t.Errorf("ClipText should be a no-op within budget, got %q", result)
	}
}

func TestClipText_CodecPath(t *testing.T) {
	counter := wideCodec{}

	text := strings.Repeat("a", 20)
	for _, maxTokens := range []int{1, 3, 7, 19} {
		result := token.ClipText(counter, text, maxTokens)
		if got := counter.Count(result); got > maxTokens {
			t.Errorf("count(clip_text(s, %d)) = %d, want <= %d", maxTokens, got, maxTokens)
		}
		if !strings.HasPrefix(text, result) {
			t.Errorf("budget %d: result %q is not a prefix", maxTokens, result)
		}
	}
}

func TestClipText_ZeroBudget(t *testing.T) {
	counter := token.NewEstimatedCounter()

	if result := token.ClipText(counter, "some text", 0); result != "" {
		t.Errorf("ClipText with zero budget should return empty string, got %q", result)
	}
}

func TestTruncateList_MaxItems(t *testing.T) {
	counter := token.NewEstimatedCounter()

	items := []interface{}{"a", "b", "c", "d", "e"}
	result := token.TruncateList(counter, items, 3, 1000)

	if len(result) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result))
	}
	if result[0] != "a" || result[2] != "c" {
		t.Error("TruncateList should keep the head of the list")
	}
}

func TestTruncateList_DropsTailUntilFits(t *testing.T) {
	counter := token.NewEstimatedCounter()

	big := strings.Repeat("z", 200) // 50 tokens each when serialized
	items := []interface{}{big, big, big, big}

	result := token.TruncateList(counter, items, 10, 120)

	if len(result) >= 4 {
		t.Fatalf("expected tail elements dropped, got %d items", len(result))
	}
	if len(result) < 1 {
		t.Fatal("TruncateList should never drop the last element")
	}
}

func TestTruncateList_KeepsLastElement(t *testing.T) {
	counter := token.NewEstimatedCounter()

	big := strings.Repeat("z", 4000)
	items := []interface{}{big, big}

	// Budget far too small for even one element: still keeps one
	result := token.TruncateList(counter, items, 10, 5)
	if len(result) != 1 {
		t.Fatalf("expected exactly 1 item, got %d", len(result))
	}
}

func TestTruncateList_Empty(t *testing.T) {
	counter := token.NewEstimatedCounter()

	result := token.TruncateList(counter, nil, 3, 100)
	if len(result) != 0 {
		t.Errorf("expected empty result, got %d items", len(result))
	}
}
