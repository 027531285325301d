package backoffice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/freightdesk/freightdesk/internal/docno"
	"github.com/freightdesk/freightdesk/internal/shipment"
)

// Claim is a document number held by one field of a job or receipt. DocNo is
// stored upper-cased so lookups ignore case.
type Claim struct {
	DocNo string
	docno.Usage
}

func jobOwner(id string) string     { return "job:" + id }
func receiptOwner(id string) string { return "receipt:" + id }

func jobClaims(job *shipment.Job) []Claim {
	refs := job.DocRefs()
	out := make([]Claim, 0, len(refs))
	for _, ref := range refs {
		out = append(out, Claim{
			DocNo: strings.ToUpper(ref.DocNo),
			Usage: docno.Usage{Owner: jobOwner(job.ID), Field: ref.Field, Group: ref.Group},
		})
	}
	return out
}

func receiptClaims(r shipment.Receipt) []Claim {
	docNo := strings.TrimSpace(r.DocNo)
	if docNo == "" {
		return nil
	}
	return []Claim{{
		DocNo: strings.ToUpper(docNo),
		Usage: docno.Usage{Owner: receiptOwner(r.ID), Field: "docNo", Group: shipment.GroupExternalReceipt},
	}}
}

// checkClaims rejects incoming claims that cannot share their document number
// with claims held by other owners or with each other.
func checkClaims(incoming []Claim, held map[string][]docno.Usage) error {
	for i, c := range incoming {
		for _, other := range held[c.DocNo] {
			if !shipment.SharedDocAllowed(c.Group, other.Group) {
				return fmt.Errorf("%w: %s is used by %s (%s)", ErrDocNoTaken, c.DocNo, other.Owner, other.Field)
			}
		}
		for _, other := range incoming[i+1:] {
			if other.DocNo == c.DocNo && !shipment.SharedDocAllowed(c.Group, other.Group) {
				return fmt.Errorf("%w: %s is used twice (%s, %s)", ErrDocNoTaken, c.DocNo, c.Field, other.Field)
			}
		}
	}
	return nil
}

// claimDocNos returns the distinct numbers in lock order.
func claimDocNos(claims []Claim) []string {
	seen := make(map[string]bool, len(claims))
	out := make([]string, 0, len(claims))
	for _, c := range claims {
		if !seen[c.DocNo] {
			seen[c.DocNo] = true
			out = append(out, c.DocNo)
		}
	}
	sort.Strings(out)
	return out
}
