package network

import "github.com/vdfkit/vdf/mask"

// MaskedOutput pairs an output with the mask of indices requested from it.
type MaskedOutput struct {
	Output *Output
	Mask   mask.Mask
}

// Request is a sorted-unique vector of MaskedOutputs: at most one entry per
// Output, ordered by output identity, built by NormalizeRequest — a set of
// (output, mask) pairs, deduplicated by output with masks unioned on
// collision.
type Request struct {
	items []MaskedOutput
}

// Items returns the request's normalized entries. The returned slice must
// not be mutated.
func (r Request) Items() []MaskedOutput { return r.items }

// Len returns the number of distinct outputs in the request.
func (r Request) Len() int { return len(r.items) }

// MaskFor returns the mask requested for a given output, and whether the
// output appears in the request at all.
func (r Request) MaskFor(o *Output) (mask.Mask, bool) {
	for _, it := range r.items {
		if it.Output == o {
			return it.Mask, true
		}
	}
	return mask.Mask{}, false
}

// NormalizeRequest builds a Request from raw (output, mask) pairs,
// deduplicating by output identity and unioning masks on collision, then
// sorting by output ID so that two requests naming the same outputs
// compare equal regardless of input order.
func NormalizeRequest(raw []MaskedOutput) Request {
	byOutput := make(map[*Output]mask.Mask, len(raw))
	order := make([]*Output, 0, len(raw))
	for _, mo := range raw {
		if existing, ok := byOutput[mo.Output]; ok {
			byOutput[mo.Output] = existing.Union(mo.Mask)
			continue
		}
		byOutput[mo.Output] = mo.Mask
		order = append(order, mo.Output)
	}

	// Insertion-stable sort by output ID: deterministic and simple over
	// an exotic comparator, and stable enough for small per-request sizes.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j-1].id > order[j].id; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}

	items := make([]MaskedOutput, len(order))
	for i, o := range order {
		items[i] = MaskedOutput{Output: o, Mask: byOutput[o]}
	}
	return Request{items: items}
}
