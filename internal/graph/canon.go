// Package graph implements canonicalization and the property graph:
// deterministic node/edge identity, name/type normalization, and
// bounded traversal over the graph persisted by internal/store.
package graph

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// NodeType is the closed set of entity/memory node types.
type NodeType string

const (
	NodeTypeMemoryCard NodeType = "MemoryCard"
	NodeTypePerson     NodeType = "Person"
	NodeTypeOrg        NodeType = "Org"
	NodeTypePlace      NodeType = "Place"
	NodeTypeProject    NodeType = "Project"
	NodeTypeTopic      NodeType = "Topic"
	NodeTypeTechnology NodeType = "Technology"
	NodeTypeComponent  NodeType = "Component"
	NodeTypeOther      NodeType = "Other"
)

// EdgeType is the closed set of graph edge relations.
type EdgeType string

const (
	EdgeTypeMentions EdgeType = "MENTIONS"
	EdgeTypeAbout    EdgeType = "ABOUT"
	EdgeTypeFollows  EdgeType = "FOLLOWS"
	EdgeTypeSupports EdgeType = "SUPPORTS"
	EdgeTypeRelated  EdgeType = "RELATED"
)

// properNounTypes take their display name from the original text
// (title-cased) rather than from the cleaned canonical form, and are
// exempt from singularization — "Acme Labs" canonicalizes to
// "acme labs", never "acme lab".
var properNounTypes = map[NodeType]bool{
	NodeTypePerson:  true,
	NodeTypeOrg:     true,
	NodeTypePlace:   true,
	NodeTypeProject: true,
}

// typeSynonyms collapses free-text type labels (as extractor tools
// report them) onto the closed NodeType enum. Unknown labels fall
// through to Other.
var typeSynonyms = map[string]NodeType{
	"person":       NodeTypePerson,
	"individual":   NodeTypePerson,
	"human":        NodeTypePerson,
	"people":       NodeTypePerson,
	"org":          NodeTypeOrg,
	"organization": NodeTypeOrg,
	"organisation": NodeTypeOrg,
	"company":      NodeTypeOrg,
	"team":         NodeTypeOrg,
	"business":     NodeTypeOrg,
	"place":        NodeTypePlace,
	"city":         NodeTypePlace,
	"country":      NodeTypePlace,
	"region":       NodeTypePlace,
	"location":     NodeTypePlace,
	"project":      NodeTypeProject,
	"initiative":   NodeTypeProject,
	"effort":       NodeTypeProject,
	"topic":        NodeTypeTopic,
	"subject":      NodeTypeTopic,
	"theme":        NodeTypeTopic,
	"concept":      NodeTypeTopic,
	"technology":   NodeTypeTechnology,
	"tech":         NodeTypeTechnology,
	"library":      NodeTypeTechnology,
	"framework":    NodeTypeTechnology,
	"tool":         NodeTypeTechnology,
	"language":     NodeTypeTechnology,
	"component":    NodeTypeComponent,
	"module":       NodeTypeComponent,
	"service":      NodeTypeComponent,
	"subsystem":    NodeTypeComponent,
}

// NormalizeType maps a free-text entity type onto the closed NodeType
// enum via typeSynonyms, defaulting to Other.
func NormalizeType(raw string) NodeType {
	key := strings.ToLower(strings.TrimSpace(raw))
	if nt, ok := typeSynonyms[key]; ok {
		return nt
	}
	return NodeTypeOther
}

var leadingArticles = map[string]bool{"a": true, "an": true, "the": true}

var fancyQuoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‛", "'", "′", "'",
	"“", "\"", "”", "\"", "„", "\"", "″", "\"",
)

// CanonicalizeName applies the fixed normalization pipeline that makes
// textually divergent mentions collapse to the same entity: trim,
// lowercase, fold fancy quotes to ASCII, strip enclosing quote/bracket
// pairs, drop punctuation except internal hyphen/apostrophe, collapse
// whitespace, strip a leading article, and (for non-proper-noun types
// only) a simple singularization.
func CanonicalizeName(raw string, nodeType NodeType) string {
	s := strings.TrimSpace(raw)
	s = strings.ToLower(s)
	s = fancyQuoteReplacer.Replace(s)
	s = stripEnclosing(s)
	s = stripPunctuation(s)
	s = collapseWhitespace(s)
	s = stripLeadingArticle(s)

	if !properNounTypes[nodeType] {
		s = singularize(s)
	}
	return strings.TrimSpace(s)
}

func stripEnclosing(s string) string {
	pairs := [][2]byte{{'"', '"'}, {'\'', '\''}, {'(', ')'}, {'[', ']'}, {'{', '}'}}
	for {
		if len(s) < 2 {
			return s
		}
		matched := false
		for _, p := range pairs {
			if s[0] == p[0] && s[len(s)-1] == p[1] {
				s = s[1 : len(s)-1]
				matched = true
				break
			}
		}
		if !matched {
			return s
		}
	}
}

func stripPunctuation(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case r == '-' || r == '\'':
			// keep only when internal (not the first or last character of the whole name)
			if i > 0 && i < len(runes)-1 {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func stripLeadingArticle(s string) string {
	fields := strings.Fields(s)
	if len(fields) > 1 && leadingArticles[fields[0]] {
		return strings.Join(fields[1:], " ")
	}
	return s
}

func singularize(s string) string {
	if len(s) > 3 && strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}

// DisplayName picks the human-facing label, separate from the
// canonical string used for identity: proper-noun types title-case the
// original text; other types prefer a lightly cleaned version of the
// original when it's at least 2 characters, else they fall back to a
// title-cased canonical string.
func DisplayName(raw, canonical string, nodeType NodeType) string {
	if properNounTypes[nodeType] {
		return strings.Title(strings.TrimSpace(raw)) //nolint:staticcheck // simple ASCII title-casing is sufficient here
	}
	cleaned := collapseWhitespace(strings.TrimSpace(raw))
	if len(cleaned) >= 2 {
		return cleaned
	}
	return strings.Title(canonical) //nolint:staticcheck
}

// EntityNodeID derives the deterministic node_id for an entity node:
// "ent:" + first 16 hex chars of sha1(node_type + "|" + canonical).
func EntityNodeID(nodeType NodeType, canonical string) string {
	sum := sha1.Sum([]byte(string(nodeType) + "|" + canonical))
	return "ent:" + hex.EncodeToString(sum[:])[:16]
}

// MemoryNodeID derives the node_id for a memory card node.
func MemoryNodeID(memoryID string) string {
	return "mem:" + memoryID
}

// EdgeID derives the deterministic edge_id so re-inserting the same
// logical edge is idempotent: first 32 hex chars of
// sha1(from + "|" + edgeType + "|" + to + "|" + validFrom + "|" + validTo).
func EdgeID(from string, edgeType EdgeType, to, validFrom, validTo string) string {
	sum := sha1.Sum([]byte(from + "|" + string(edgeType) + "|" + to + "|" + validFrom + "|" + validTo))
	return hex.EncodeToString(sum[:])[:32]
}

// TypePriority ranks node types for Compaction's primary-selection
// rule: higher value wins when two duplicate-canonical nodes of
// different types must be merged into one.
func TypePriority(nodeType NodeType) int {
	switch nodeType {
	case NodeTypePerson:
		return 7
	case NodeTypeOrg:
		return 6
	case NodeTypePlace:
		return 5
	case NodeTypeProject:
		return 4
	case NodeTypeTechnology:
		return 3
	case NodeTypeComponent:
		return 2
	case NodeTypeTopic:
		return 1
	default:
		return 0
	}
}
