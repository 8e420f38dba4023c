package shield

import (
	"strings"
	"testing"
)

func TestProtect_Example(t *testing.T) {
	processed, table := Protect("Hello <code>world()</code>!")

	if processed != "Hello <1:world()>!" {
		t.Errorf("processed = %q, want %q", processed, "Hello <1:world()>!")
	}
	if len(table) != 1 || table[0] != "<code>world()</code>" {
		t.Errorf("table = %q, want [<code>world()</code>]", table)
	}

	if got := Restore(processed, table); got != "Hello <code>world()</code>!" {
		t.Errorf("Restore = %q", got)
	}
}

func TestProtectRestore_Identity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		spans int
	}{
		{"no spans", "Plain <b>bold</b> text", 0},
		{"one span", "Call <code>fmt.Println</code> now", 1},
		{"many spans", "Use <code>a</code>, <CODE class=\"x\">b &lt; c</CODE> and <code>\nmulti\nline\n</code>.", 3},
		{"empty span", "Empty <code></code> span", 1},
		{"nested markup", `Run <code><span class="k">go</span> test</code> first`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processed, table := Protect(tt.input)
			if len(table) != tt.spans {
				t.Fatalf("expected %d spans, got %d (%q)", tt.spans, len(table), table)
			}
			if tt.spans > 0 && strings.Contains(strings.ToLower(processed), "<code") {
				t.Errorf("code markup leaked into processed text: %q", processed)
			}
			if got := Restore(processed, table); got != tt.input {
				t.Errorf("round trip mismatch:\n got  %q\n want %q", got, tt.input)
			}
		})
	}
}

func TestProtect_Placeholders(t *testing.T) {
	processed, _ := Protect("<code></code> and <code><i>x</i></code>")
	if processed != "<1> and <2:x>" {
		t.Errorf("processed = %q", processed)
	}
}

func TestProtect_LongHintIsCapped(t *testing.T) {
	long := strings.Repeat("a", 100)
	processed, table := Protect("<code>" + long + "</code>")

	want := "<1:" + strings.Repeat("a", MaxHintRunes) + ">"
	if processed != want {
		t.Errorf("processed = %q, want %q", processed, want)
	}
	if Restore(processed, table) != "<code>"+long+"</code>" {
		t.Error("long span should still restore verbatim")
	}
}

func TestRestore_Reordered(t *testing.T) {
	_, table := Protect("Press <code>Ctrl</code> then <code>C</code>")

	// A translation that swaps the order of the spans.
	translated := "<2:C>를 누르기 전에 <1:Ctrl>을 누르세요"
	got := Restore(translated, table)

	want := "<code>C</code>를 누르기 전에 <code>Ctrl</code>을 누르세요"
	if got != want {
		t.Errorf("Restore = %q, want %q", got, want)
	}
}

func TestRestore_ToleratesRewrittenTokens(t *testing.T) {
	_, table := Protect("x <code>y()</code>")

	tests := []string{"< 1 : Y() >", "<1:translated hint>", "<1>"}
	for _, token := range tests {
		if got := Restore("x "+token, table); got != "x <code>y()</code>" {
			t.Errorf("Restore(%q) = %q", token, got)
		}
	}
}

func TestRestore_FailOpen(t *testing.T) {
	_, table := Protect("a <code>b</code>")

	tests := []struct {
		name  string
		input string
	}{
		{"out of range", "a <7:b>"},
		{"zero index", "a <0:b>"},
		{"huge index", "a <99999999999999999999999:b>"},
		{"not a placeholder", "a <b>bold</b>"},
		{"unterminated", "a <1:b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Restore(tt.input, table); got != tt.input {
				t.Errorf("Restore(%q) = %q, want input unchanged", tt.input, got)
			}
		})
	}
}

func TestRestore_DuplicatedAndDropped(t *testing.T) {
	_, table := Protect("<code>x</code> <code>y</code>")

	got, stats := RestoreStats("<1:x> <1:x>", table)
	if got != "<code>x</code> <code>x</code>" {
		t.Errorf("duplicated placeholder: got %q", got)
	}
	if stats.Restored != 2 || stats.Missed != 0 {
		t.Errorf("stats = %+v", stats)
	}

	got, stats = RestoreStats("nothing left <5>", table)
	if got != "nothing left <5>" {
		t.Errorf("dropped placeholders: got %q", got)
	}
	if stats.Restored != 0 || stats.Missed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRestore_NilTable(t *testing.T) {
	if got := Restore("keep <1:me>", nil); got != "keep <1:me>" {
		t.Errorf("Restore with nil table = %q", got)
	}
}
