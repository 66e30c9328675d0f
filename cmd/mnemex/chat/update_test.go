package chat

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"mnemex/internal/orchestrator"
)

func TestUpdateEnterDispatchesAskAndMarksWaiting(t *testing.T) {
	m := New(nil)
	m.input.SetValue("what did I read yesterday?")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next := updated.(Model)

	if !next.waiting {
		t.Error("expected waiting=true after submitting a question")
	}
	if next.pendingQuestion != "what did I read yesterday?" {
		t.Errorf("expected pendingQuestion to be set, got %q", next.pendingQuestion)
	}
	if next.input.Value() != "" {
		t.Errorf("expected input to be reset, got %q", next.input.Value())
	}
	if cmd == nil {
		t.Error("expected a batched command to be returned")
	}
}

func TestUpdateEnterIgnoresBlankInput(t *testing.T) {
	m := New(nil)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next := updated.(Model)

	if next.waiting {
		t.Error("expected waiting to remain false for blank input")
	}
}

func TestUpdateAnswerMsgAppendsTurnAndClearsPending(t *testing.T) {
	m := New(nil)
	m.waiting = true
	m.pendingQuestion = "who did Alice meet?"

	result := &orchestrator.ChatResult{
		Answer:  "Alice met Bob at Acme Corp.",
		Verdict: "pass",
		Citations: []orchestrator.Citation{
			{MemoryID: "mem-1", SourceType: "filesystem"},
		},
	}

	updated, _ := m.Update(answerMsg{result: result})
	next := updated.(Model)

	if next.waiting {
		t.Error("expected waiting=false once the answer arrives")
	}
	if next.pendingQuestion != "" {
		t.Errorf("expected pendingQuestion to be cleared, got %q", next.pendingQuestion)
	}
	if len(next.history) != 1 {
		t.Fatalf("expected one turn recorded, got %d", len(next.history))
	}
	if next.history[0].question != "who did Alice meet?" {
		t.Errorf("expected the recorded turn to keep the original question, got %q", next.history[0].question)
	}
	if next.history[0].answer != result.Answer {
		t.Errorf("expected the recorded turn to carry the answer, got %q", next.history[0].answer)
	}
	if len(next.history[0].sources) != 1 || next.history[0].sources[0] != "mem-1" {
		t.Errorf("expected sources to carry citation memory ids, got %v", next.history[0].sources)
	}
}

func TestUpdateAnswerMsgErrorIsRecordedOnTurn(t *testing.T) {
	m := New(nil)
	m.waiting = true
	m.pendingQuestion = "will this fail?"

	updated, _ := m.Update(answerMsg{err: errBoom{}})
	next := updated.(Model)

	if len(next.history) != 1 {
		t.Fatalf("expected one turn recorded, got %d", len(next.history))
	}
	if next.history[0].answer == "" {
		t.Error("expected a non-empty error answer")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
