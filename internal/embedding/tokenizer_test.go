package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: ids=%d attn=%d types=%d", len(ids), len(attn), len(types))
	}
	if ids[0] != 101 {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != 102 {
		t.Errorf("expected SEP 102 after two words, got %d", ids[3])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask: %v", attn)
	}
}

func TestSimpleTokenizer_truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("a b c d e f g h", 4)
	if len(ids) != 4 {
		t.Fatalf("len(ids)=%d", len(ids))
	}
	for i, a := range attn {
		if a != 1 {
			t.Errorf("attention[%d] = %d, want 1", i, a)
		}
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a  b  c  ")
	if len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if len(SplitWords("")) != 0 {
		t.Error("empty string should return no words")
	}
	got := SplitWords("name: Alice\nage: 30")
	want := []string{"name", "Alice", "age", "30"}
	if len(got) != len(want) {
		t.Fatalf("SplitWords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHashString(t *testing.T) {
	h := HashString("abc")
	if h == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}
