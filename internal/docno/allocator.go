// Package docno allocates sequential AMIS accounting document numbers such as
// NTTK00042 or UNC00007.
package docno

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk/internal/shipment"
)

// DefaultWidth is the zero padded digit count used by AMIS exports.
const DefaultWidth = 5

// Matcher recognises document numbers of a single prefix.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher builds a matcher for prefix followed by one or more digits. The
// prefix compares case-insensitively.
func NewMatcher(prefix string) Matcher {
	return Matcher{re: regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `(\d+)$`)}
}

// Suffix returns the numeric part of docNo, false when it does not belong to
// the prefix or does not fit an int64.
func (m Matcher) Suffix(docNo string) (int64, bool) {
	groups := m.re.FindStringSubmatch(strings.TrimSpace(docNo))
	if groups == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(groups[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSuffix scans every document number held by the jobs plus the reserved
// strings and returns the highest suffix in use for prefix, or 0.
func MaxSuffix(jobs []shipment.Job, prefix string, reserved ...string) int64 {
	m := NewMatcher(prefix)
	var max int64
	track := func(docNo string) {
		if n, ok := m.Suffix(docNo); ok && n > max {
			max = n
		}
	}
	for i := range jobs {
		for _, ref := range jobs[i].DocRefs() {
			track(ref.DocNo)
		}
	}
	for _, docNo := range reserved {
		track(docNo)
	}
	return max
}

// Next returns the next unused document number for prefix, zero padded to
// width digits. Numbers already chosen in the current session but not yet
// saved go in reserved. Two callers working from the same snapshot receive
// the same number; use a Reserver when that matters.
func Next(jobs []shipment.Job, prefix string, width int, reserved ...string) string {
	return Format(prefix, MaxSuffix(jobs, prefix, reserved...)+1, width)
}

// Format renders prefix followed by n left padded with zeros to width digits.
func Format(prefix string, n int64, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// ReceiptDocNos lists the document numbers of external receipts so they can be
// passed as reserved numbers.
func ReceiptDocNos(receipts []shipment.Receipt) []string {
	out := make([]string, 0, len(receipts))
	for _, r := range receipts {
		if docNo := strings.TrimSpace(r.DocNo); docNo != "" {
			out = append(out, docNo)
		}
	}
	return out
}

// Placeholder returns a temporary document number for a voucher that has not
// been saved yet. It never matches an allocator prefix.
func Placeholder() string {
	return "TMP-" + strings.ToUpper(uuid.NewString()[:8])
}

// Usage is one place a document number is stored.
type Usage struct {
	Owner string `json:"owner"`
	Field string `json:"field"`
	Group string `json:"group"`
}

// Conflicts reports document numbers reused in incompatible places across
// jobs and external receipts, keyed by upper-cased document number. Sharing
// inside one reference group, such as one receipt settling several jobs, is
// not a conflict.
func Conflicts(jobs []shipment.Job, receipts []shipment.Receipt) map[string][]Usage {
	uses := make(map[string][]Usage)
	for i := range jobs {
		for _, ref := range jobs[i].DocRefs() {
			key := strings.ToUpper(ref.DocNo)
			uses[key] = append(uses[key], Usage{Owner: "job:" + jobs[i].ID, Field: ref.Field, Group: ref.Group})
		}
	}
	for _, r := range receipts {
		if docNo := strings.TrimSpace(r.DocNo); docNo != "" {
			key := strings.ToUpper(docNo)
			uses[key] = append(uses[key], Usage{Owner: "receipt:" + r.ID, Field: "docNo", Group: shipment.GroupExternalReceipt})
		}
	}
	for key, list := range uses {
		if !conflicting(list) {
			delete(uses, key)
			continue
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Owner == list[j].Owner {
				return list[i].Field < list[j].Field
			}
			return list[i].Owner < list[j].Owner
		})
	}
	return uses
}

func conflicting(list []Usage) bool {
	for i := range list {
		for j := i + 1; j < len(list); j++ {
			if !shipment.SharedDocAllowed(list[i].Group, list[j].Group) {
				return true
			}
		}
	}
	return false
}
