package store

import (
	"database/sql"
	"errors"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
)

// ConversationTurn is one user/assistant exchange in the chat operation.
type ConversationTurn struct {
	TurnID        string
	UserText      string
	AssistantText string
	Verdict       string
	TraceID       string
}

// ChatCitation grounds a span of an assistant turn's answer in a
// specific memory card.
type ChatCitation struct {
	CitationID string
	TurnID     string
	MemoryID   string
	Quote      string
	SpanStart  int
	SpanEnd    int
}

// InsertConversationTurn persists a completed chat turn. The verdict
// comes from the verifier tool (pass/revise/abstain).
func (s *Store) InsertConversationTurn(turn *ConversationTurn) error {
	if turn.TurnID == "" {
		turn.TurnID = idgen.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO conversation_turns (turn_id, user_text, assistant_text, verdict, trace_id)
		 VALUES (?, ?, ?, ?, ?)`,
		turn.TurnID, turn.UserText, turn.AssistantText, turn.Verdict, turn.TraceID,
	)
	if err != nil {
		return err
	}
	logging.Chat("conversation turn persisted: %s (verdict=%s)", turn.TurnID, turn.Verdict)
	return nil
}

// InsertChatCitation persists one citation for a turn. Invalid
// memory_ids are the caller's responsibility to filter before calling.
func (s *Store) InsertChatCitation(c *ChatCitation) error {
	if c.CitationID == "" {
		c.CitationID = idgen.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO chat_citations (citation_id, turn_id, memory_id, quote, span_start, span_end)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.CitationID, c.TurnID, c.MemoryID, c.Quote, c.SpanStart, c.SpanEnd,
	)
	return err
}

// GetConversationTurn loads a turn by id, returning nil, nil if absent.
func (s *Store) GetConversationTurn(turnID string) (*ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var turn ConversationTurn
	var assistantText, verdict, traceID sql.NullString
	err := s.db.QueryRow(
		`SELECT turn_id, user_text, assistant_text, verdict, trace_id FROM conversation_turns WHERE turn_id = ?`,
		turnID,
	).Scan(&turn.TurnID, &turn.UserText, &assistantText, &verdict, &traceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	turn.AssistantText = assistantText.String
	turn.Verdict = verdict.String
	turn.TraceID = traceID.String
	return &turn, nil
}

// CitationsForTurn returns every citation attached to a turn.
func (s *Store) CitationsForTurn(turnID string) ([]*ChatCitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT citation_id, turn_id, memory_id, quote, span_start, span_end FROM chat_citations WHERE turn_id = ?`,
		turnID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ChatCitation
	for rows.Next() {
		c := &ChatCitation{}
		var quote sql.NullString
		var spanStart, spanEnd sql.NullInt64
		if err := rows.Scan(&c.CitationID, &c.TurnID, &c.MemoryID, &quote, &spanStart, &spanEnd); err != nil {
			continue
		}
		c.Quote = quote.String
		c.SpanStart = int(spanStart.Int64)
		c.SpanEnd = int(spanEnd.Int64)
		out = append(out, c)
	}
	return out, nil
}
