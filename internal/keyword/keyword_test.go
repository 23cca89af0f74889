package keyword

import "testing"

func TestPrefixMatchesInflections(t *testing.T) {
	set := Compile([]string{"surprise", "expected"}, Prefix)

	if got := set.Hits("Fed surprises markets"); got != 1 {
		t.Fatalf("expected 1 hit for inflected term, got %d", got)
	}
	if got := set.Hits("an unexpected move"); got != 0 {
		t.Fatalf("expected no hit inside another word, got %d", got)
	}
	if got := set.Hits("Expected and SURPRISE"); got != 2 {
		t.Fatalf("expected case-insensitive hits, got %d", got)
	}
}

func TestWholeRequiresTrailingBoundary(t *testing.T) {
	set := Compile([]string{"FED"}, Whole)
	if set.Contains("federal budget") {
		t.Fatal("whole-word term should not match a longer word")
	}
	if !set.Contains("the Fed said") {
		t.Fatal("whole-word term should match case-insensitively")
	}
	if !set.Contains("FRBやFEDが") {
		t.Fatal("adjacent native script should count as a boundary")
	}
}

func TestPhraseToleratesWhitespace(t *testing.T) {
	set := Compile([]string{"rate decision"}, Prefix)
	if !set.Contains("ahead of the rate\n decisions") {
		t.Fatal("phrase should match across whitespace runs")
	}
}

func TestNonASCIISubstring(t *testing.T) {
	set := Compile([]string{"日銀", "利上げ"}, Whole)
	matches := set.Matches("日銀が利上げを決定")
	if len(matches) != 2 || matches[0] != "日銀" || matches[1] != "利上げ" {
		t.Fatalf("unexpected matches: %v", matches)
	}
}

func TestCompileDropsDuplicatesAndBlanks(t *testing.T) {
	set := Compile([]string{"cpi", "CPI", " ", ""}, Prefix)
	if set.Len() != 1 {
		t.Fatalf("expected 1 term, got %d", set.Len())
	}
	if set.Hits("") != 0 {
		t.Fatal("empty text should yield no hits")
	}
}
