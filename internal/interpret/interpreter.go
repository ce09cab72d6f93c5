// Package interpret classifies free text (voice or chat) into a structured
// Intent. Interpretation never enforces business rules: an intent for an
// illegal transition is still returned and the order aggregate rejects it.
package interpret

import (
	"regexp"
	"sort"
	"strings"

	"dinewire/internal/domain"
)

// Intent is the tagged result of interpreting one utterance. Exactly one of
// the pointer fields is set; Unrecognized carries the raw text back to the
// channel so the user can be asked to rephrase.
type Intent struct {
	Create       *CreateOrder
	ChangeStatus *ChangeStatus
	Delete       *DeleteOrder
	Unrecognized *Unrecognized
}

type CreateOrder struct {
	Table string
	Text  string // remaining text, handed to the matcher for items
}

type ChangeStatus struct {
	OrderRef     string
	TargetStatus domain.OrderStatus
}

type DeleteOrder struct {
	OrderRef string
}

type Unrecognized struct {
	RawText string
}

// OrderRef is the slice of order state the interpreter needs to resolve
// references; callers pass a snapshot, never live storage.
type OrderRef struct {
	OrderNumber string
	TableNumber string
	CreatedAt   int64 // unix nanos, for most-recent-per-table resolution
}

// Context is the read-only world the interpreter resolves against.
type Context struct {
	Orders  []OrderRef
	Catalog []domain.MenuItem
}

var (
	tableRe  = regexp.MustCompile(`(?i)\btable\s*#?\s*(\w+)`)
	orderRe  = regexp.MustCompile(`(?i)\b(?:order|number)\s*#?\s*(\d+)`)
	createRe = regexp.MustCompile(`(?i)\b(?:create|new|start|open)\s+(?:an?\s+)?order\b`)
	deleteRe = regexp.MustCompile(`(?i)\b(?:delete|cancel|remove|scrap)\b`)
)

// statusKeywords maps trigger words to target statuses. Scanning is
// left-to-right over the utterance; the earliest occurrence wins.
var statusKeywords = []struct {
	word   string
	status domain.OrderStatus
}{
	{"preparing", domain.StatusPreparing},
	{"prep", domain.StatusPreparing},
	{"cooking", domain.StatusPreparing},
	{"ready", domain.StatusReady},
	{"completed", domain.StatusCompleted},
	{"complete", domain.StatusCompleted},
	{"done", domain.StatusCompleted},
	{"finished", domain.StatusCompleted},
	{"finish", domain.StatusCompleted},
	{"billed", domain.StatusBilled},
	{"bill", domain.StatusBilled},
	{"delivered", domain.StatusDelivered},
	{"pending", domain.StatusPending},
}

// Interpret turns one utterance into an Intent. Rule priority: creation
// keywords, then deletion, then status keywords; anything else (or a status
// request with no resolvable order) is Unrecognized.
func Interpret(text string, ctx Context) Intent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Intent{Unrecognized: &Unrecognized{RawText: text}}
	}

	if createRe.MatchString(trimmed) {
		return Intent{Create: &CreateOrder{Table: extractTable(trimmed), Text: trimmed}}
	}

	if deleteRe.MatchString(trimmed) {
		if ref := resolveOrder(trimmed, ctx); ref != "" {
			return Intent{Delete: &DeleteOrder{OrderRef: ref}}
		}
		return Intent{Unrecognized: &Unrecognized{RawText: text}}
	}

	if status, ok := earliestStatus(trimmed); ok {
		ref := resolveOrder(trimmed, ctx)
		if ref == "" {
			// A status keyword with no resolvable target: never guess.
			return Intent{Unrecognized: &Unrecognized{RawText: text}}
		}
		return Intent{ChangeStatus: &ChangeStatus{OrderRef: ref, TargetStatus: status}}
	}

	return Intent{Unrecognized: &Unrecognized{RawText: text}}
}

// earliestStatus scans for status keywords and returns the one occurring
// first in the text. Ties on position go to the longer keyword so "billed"
// beats "bill" and "preparing" beats "prep".
func earliestStatus(text string) (domain.OrderStatus, bool) {
	lowered := strings.ToLower(text)
	type hit struct {
		pos    int
		length int
		status domain.OrderStatus
	}
	var hits []hit
	for _, kw := range statusKeywords {
		if pos := indexWord(lowered, kw.word); pos >= 0 {
			hits = append(hits, hit{pos: pos, length: len(kw.word), status: kw.status})
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].length > hits[j].length
	})
	return hits[0].status, true
}

// indexWord finds a whole-word occurrence of w in s, or -1.
func indexWord(s, w string) int {
	from := 0
	for {
		i := strings.Index(s[from:], w)
		if i < 0 {
			return -1
		}
		pos := from + i
		before := pos == 0 || !isWordRune(rune(s[pos-1]))
		afterIdx := pos + len(w)
		after := afterIdx >= len(s) || !isWordRune(rune(s[afterIdx]))
		if before && after {
			return pos
		}
		from = pos + 1
	}
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

func extractTable(text string) string {
	if m := tableRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// resolveOrder finds the order a command refers to. An explicit order-number
// token wins; otherwise the most recent order for a stated table number is
// used. An empty result means nothing resolved.
func resolveOrder(text string, ctx Context) string {
	if m := orderRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	table := extractTable(text)
	if table == "" {
		return ""
	}
	var best *OrderRef
	for i := range ctx.Orders {
		o := &ctx.Orders[i]
		if o.TableNumber != table {
			continue
		}
		if best == nil || o.CreatedAt > best.CreatedAt {
			best = o
		}
	}
	if best == nil {
		return ""
	}
	return best.OrderNumber
}
