package fixgen

import "testing"

func TestExtractCode_fencedBlock(t *testing.T) {
	t.Parallel()
	raw := "Here is the corrected code:\n\n```python\ndef f():\n    return 1\n```\n\nHope that helps!"
	want := "def f():\n    return 1"
	if got := ExtractCode(raw); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractCode_fencedBlockVerbatim(t *testing.T) {
	t.Parallel()
	raw := "```\n\ndef f():\n    return 1\n\n```"
	want := "def f():\n    return 1"
	if got := ExtractCode(raw); got != want {
		t.Errorf("blank-line trimming: got %q, want %q", got, want)
	}
}

func TestExtractCode_markerLine(t *testing.T) {
	t.Parallel()
	raw := "Sure.\n\nCORRECTED CODE:\ndef f():\n    return 1\n"
	want := "def f():\n    return 1"
	if got := ExtractCode(raw); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractCode_markerThenFence(t *testing.T) {
	t.Parallel()
	raw := "CORRECTED CODE:\n```\ndef f():\n    return 1\n```"
	want := "def f():\n    return 1"
	if got := ExtractCode(raw); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractCode_signalScan(t *testing.T) {
	t.Parallel()
	raw := "The problem was a missing import.\nimport os\ndef f():\n    return os.sep\n"
	want := "import os\ndef f():\n    return os.sep"
	if got := ExtractCode(raw); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractCode_noCodeReturnsEmpty(t *testing.T) {
	t.Parallel()
	raw := "I am unable to fix this file.\nPlease consult a human."
	if got := ExtractCode(raw); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestExtractCode_tooShortReturnsEmpty(t *testing.T) {
	t.Parallel()
	if got := ExtractCode("```\nx=1\n```"); got != "" {
		t.Errorf("got %q, want empty (below plausibility threshold)", got)
	}
}
