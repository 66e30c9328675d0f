// Package retrieval implements the hybrid retrieval engine: a
// four-stage fusion of lexical full-text search, semantic vector
// search, graph expansion, and recency/source boosts over the
// persistence layer's memory cards. The tiered weighting (keyword
// tier, neighbor tier, semantic tier) re-expresses a file-ranking
// idea as card-ranking for a personal memory store.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"mnemex/internal/embedding"
	"mnemex/internal/graph"
	"mnemex/internal/logging"
	"mnemex/internal/store"
)

// Weights are the fusion coefficients of stage 4.
const (
	weightSemantic = 0.45
	weightLexical  = 0.35
	weightGraph    = 0.15
	weightRecency  = 0.05

	scoreFloor = 0.18

	graphHop1Score = 0.7
	graphHop2Score = 0.4
)

var sourceBoosts = map[string]float64{
	"browser_highlight": 0.10,
	"browser_bookmark":  0.05,
	"file_capture":      0.03,
	"audio_note":        0.03,
	"browser_visit":     -0.10,
}

var ftsSyntaxChars = regexp.MustCompile(`["*:^(){}?!]`)

// Candidate is a ranked memory card with its per-signal breakdown.
type Candidate struct {
	MemoryID    string
	Summary     string
	Snippet     string
	SourceType  string
	CreatedAt   time.Time
	Score       float64
	Semantic    float64
	Lexical     float64
	Graph       float64
	Recency     float64
	SourceBoost float64
	Reasons     []string
	GraphPath   []string
}

// Query describes a single retrieval request.
type Query struct {
	Text            string
	TopK            int
	TimeFrom        string
	TimeTo          string
	SourceTypes     []string
	UseSemantic     bool
	UseGraph        bool
	Hops            int
	LexicalCandCap  int
	SemanticCandCap int
}

// Engine runs the four-stage hybrid retrieval.
type Engine struct {
	store    *store.Store
	graph    *graph.Service
	embedder embedding.EmbeddingEngine
}

// NewEngine builds a retrieval engine. embedder may be nil — the
// semantic stage is skipped when it is, or whenever an embed call
// fails, the same stub/real duality judgment applied across the tool
// layer.
func NewEngine(s *store.Store, g *graph.Service, embedder embedding.EmbeddingEngine) *Engine {
	return &Engine{store: s, graph: g, embedder: embedder}
}

// Search runs stages 1 through 4 and returns the top-k candidates.
func (e *Engine) Search(ctx context.Context, q Query) ([]Candidate, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Search")
	defer timer.Stop()

	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	candCap := q.LexicalCandCap
	if candCap <= 0 {
		candCap = topK * 3
	}

	byID := make(map[string]*Candidate)

	lexHits, err := e.lexicalStage(q.Text, candCap)
	if err != nil {
		logging.Get(logging.CategoryRetrieval).Warn("lexical stage failed: %v", err)
	}
	for _, h := range lexHits {
		c := ensureCandidate(byID, h.memoryID)
		c.Lexical = h.score
		c.Reasons = appendReason(c.Reasons, "fts_match")
	}

	if q.UseSemantic {
		semCap := q.SemanticCandCap
		if semCap <= 0 {
			semCap = candCap
		}
		semHits, err := e.semanticStage(ctx, q.Text, semCap)
		if err != nil {
			logging.Get(logging.CategoryRetrieval).Warn("semantic stage unavailable: %v", err)
		}
		for _, h := range semHits {
			c := ensureCandidate(byID, h.memoryID)
			c.Semantic = h.score
			c.Reasons = appendReason(c.Reasons, "semantic_text")
		}
	}

	if q.UseGraph && q.Hops > 0 && e.graph != nil {
		seeds := preliminarySeeds(byID, q.Hops)
		graphHits, err := e.graphStage(seeds, q.Hops, q.TimeFrom, q.TimeTo, candCap)
		if err != nil {
			logging.Get(logging.CategoryRetrieval).Warn("graph stage failed: %v", err)
		}
		for _, h := range graphHits {
			c := ensureCandidate(byID, h.memoryID)
			if h.score > c.Graph {
				c.Graph = h.score
				c.GraphPath = h.path
			}
			c.Reasons = appendReason(c.Reasons, "graph_expand")
		}
	}

	candidates, err := e.fuse(byID, q)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func ensureCandidate(byID map[string]*Candidate, memoryID string) *Candidate {
	if c, ok := byID[memoryID]; ok {
		return c
	}
	c := &Candidate{MemoryID: memoryID}
	byID[memoryID] = c
	return c
}

func appendReason(reasons []string, reason string) []string {
	for _, r := range reasons {
		if r == reason {
			return reasons
		}
	}
	return append(reasons, reason)
}

// sanitizeFTSQuery strips full-text syntax characters, discards
// pure-punctuation tokens, quotes each surviving token, and ORs them
// together.
func sanitizeFTSQuery(text string) string {
	cleaned := ftsSyntaxChars.ReplaceAllString(text, " ")
	fields := strings.Fields(cleaned)
	var tokens []string
	for _, f := range fields {
		if !hasAlphanumeric(f) {
			continue
		}
		tokens = append(tokens, fmt.Sprintf("%q", f))
	}
	return strings.Join(tokens, " OR ")
}

func hasAlphanumeric(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return true
		}
	}
	return false
}

type scoredHit struct {
	memoryID string
	score    float64
	path     []string
}

// lexicalStage runs the sanitized query over the FTS index, mapping
// bm25 rank r to score 1/(1+|r|).
func (e *Engine) lexicalStage(text string, limit int) ([]scoredHit, error) {
	ftsQuery := sanitizeFTSQuery(text)
	if ftsQuery == "" {
		return nil, nil
	}
	rows, err := e.store.SearchSummariesFTS(ftsQuery, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]scoredHit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, scoredHit{memoryID: r.MemoryID, score: 1.0 / (1.0 + math.Abs(r.Rank))})
	}
	return hits, nil
}

// semanticStage embeds the query with the same text-embedding engine
// used at ingest and searches the text vector collection. Distance is
// assumed to be cosine distance in [0,2]; score = 1 - distance clamped
// to [0,1], consistent with normalized vectors.
func (e *Engine) semanticStage(ctx context.Context, text string, limit int) ([]scoredHit, error) {
	if e.embedder == nil {
		return nil, nil
	}

	var vec []float32
	var err error
	if taskAware, ok := e.embedder.(embedding.TaskTypeAwareEngine); ok {
		taskType := embedding.SelectTaskType(embedding.ContentTypeQuery, true)
		vec, err = taskAware.EmbedWithTask(ctx, text, taskType)
	} else {
		vec, err = e.embedder.Embed(ctx, text)
	}
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := e.store.SearchVector(ctx, "text", vec, limit)
	if err != nil {
		return nil, fmt.Errorf("search text collection: %w", err)
	}
	hits := make([]scoredHit, 0, len(matches))
	for _, m := range matches {
		score := 1.0 - m.Distance
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		hits = append(hits, scoredHit{memoryID: m.MemoryID, score: score})
	}
	return hits, nil
}

// preliminarySeeds ranks candidates seen so far by
// semantic·W_semantic + lexical·W_lexical and returns up to seedK
// memory node ids to root the graph expansion at.
func preliminarySeeds(byID map[string]*Candidate, hops int) []string {
	const seedK = 5
	type ranked struct {
		memoryID string
		prelim   float64
	}
	list := make([]ranked, 0, len(byID))
	for id, c := range byID {
		list = append(list, ranked{id, c.Semantic*weightSemantic + c.Lexical*weightLexical})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].prelim > list[j].prelim })
	if len(list) > seedK {
		list = list[:seedK]
	}
	seeds := make([]string, 0, len(list))
	for _, r := range list {
		seeds = append(seeds, graph.MemoryNodeID(r.memoryID))
	}
	return seeds
}

// graphStage treats each seed as a memory node, expands to its entity
// neighbors, then back out to the memory neighbors of those entities.
// Each raw hop traverses one MENTIONS edge; a memory-level hop is two
// raw edges (mem -> entity -> mem), so a memory-hop-1 candidate has a
// path of length 2 and scores 0.7, memory-hop-2 has length 4 and
// scores 0.4.
func (e *Engine) graphStage(seeds []string, hops int, timeFrom, timeTo string, limit int) ([]scoredHit, error) {
	if len(seeds) == 0 {
		return nil, nil
	}
	if hops > 2 {
		hops = 2
	}
	rawHops := hops * 2

	seedSet := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seedSet[s] = true
	}

	result, err := e.graph.Expand(seeds, rawHops, store.DirectionBoth, []string{string(graph.EdgeTypeMentions)}, timeFrom, timeTo, limit*10, limit*20)
	if err != nil {
		return nil, err
	}

	var hits []scoredHit
	for _, n := range result.Nodes {
		if n.NodeType != string(graph.NodeTypeMemoryCard) || seedSet[n.NodeID] {
			continue
		}
		path := result.Paths[n.NodeID]
		memHop := (len(path) + 1) / 2
		var score float64
		switch memHop {
		case 1:
			score = graphHop1Score
		case 2:
			score = graphHop2Score
		default:
			continue
		}
		hits = append(hits, scoredHit{memoryID: strings.TrimPrefix(n.NodeID, "mem:"), score: score, path: path})
	}
	return hits, nil
}

// fuse fetches card metadata for every candidate, drops those failing
// time/source filters, computes the final weighted score, and drops
// anything below the score floor.
func (e *Engine) fuse(byID map[string]*Candidate, q Query) ([]Candidate, error) {
	allowed := make(map[string]bool, len(q.SourceTypes))
	for _, s := range q.SourceTypes {
		allowed[s] = true
	}

	out := make([]Candidate, 0, len(byID))
	for memoryID, c := range byID {
		card, err := e.store.GetMemoryCard(memoryID)
		if err != nil || card == nil {
			continue
		}

		sourceType, _ := card.Metadata["source_type"].(string)
		if len(allowed) > 0 && !allowed[sourceType] {
			continue
		}
		if !withinWindow(card.CreatedAt, q.TimeFrom, q.TimeTo) {
			continue
		}

		days := time.Since(card.CreatedAt).Hours() / 24
		recency := math.Exp(-days / 30.0)
		boost := sourceBoosts[sourceType]

		final := weightSemantic*c.Semantic + weightLexical*c.Lexical + weightGraph*c.Graph + weightRecency*recency + boost
		if final < 0 {
			final = 0
		}
		if final > 1 {
			final = 1
		}
		if final < scoreFloor {
			continue
		}

		snippet := card.ContentText
		if len(snippet) > 800 {
			snippet = snippet[:800]
		}

		c.Summary = card.Summary
		c.Snippet = snippet
		c.SourceType = sourceType
		c.CreatedAt = card.CreatedAt
		c.Recency = recency
		c.SourceBoost = boost
		c.Score = final
		out = append(out, *c)
	}
	return out, nil
}

// withinWindow reports whether t falls within [from, to), normalizing
// any literal space in the bound strings to "T" per the ISO timestamp
// comparison rule. Empty bounds are unconstrained.
func withinWindow(t time.Time, from, to string) bool {
	if from != "" {
		fromT, err := time.Parse(time.RFC3339, strings.Replace(from, " ", "T", 1))
		if err == nil && t.Before(fromT) {
			return false
		}
	}
	if to != "" {
		toT, err := time.Parse(time.RFC3339, strings.Replace(to, " ", "T", 1))
		if err == nil && !t.Before(toT) {
			return false
		}
	}
	return true
}
