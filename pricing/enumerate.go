package pricing

import "github.com/warp/ticket-recon/ticket"

// =============================================================================
// ENUMERATOR - price -> every structurally distinct match
// =============================================================================

// Enumerate returns every match whose price is exactly price.
//
// Quantities are searched in [1, w] with w = price/minPrice + 1, where
// minPrice is the cheapest non-free batch (w = 1 when every batch is free).
// promoLimit caps promo tickets in a PromoCombo; zero or negative means no
// cap beyond w.
//
// The promo -> batch 1 transition is a PromoCombo; TurnOfBatch pairs start
// at batch 1.
//
// The result is the same set a brute-force scan over all quantities would
// give, computed by divisibility instead.
func Enumerate(price int64, catalog ticket.Catalog, promoLimit int) MatchSet {
	out := make(MatchSet)
	if catalog.IsEmpty() || price < 0 {
		return out
	}
	w := searchBound(price, catalog)

	// Multiples
	for _, b := range catalog.Batches() {
		quantitiesFor(price, b, w, func(q int) {
			out.Add(Multiple(ticket.BatchAmount{Batch: b, Quantity: q}))
		})
	}

	// Promo combos: promo only ever combines with the first numbered batch.
	promo, hasPromo := catalog.Promo()
	first, hasFirst := catalog.Lookup(ticket.Numbered(1))
	if hasPromo && hasFirst {
		limit := w
		if promoLimit > 0 {
			limit = promoLimit
		}
		pairsFor(price, promo, limit, first, w, func(pq, nq int) {
			out.Add(PromoCombo(
				ticket.BatchAmount{Batch: promo, Quantity: pq},
				ticket.BatchAmount{Batch: first, Quantity: nq},
			))
		})
	}

	// Turns of batch
	for _, b1 := range catalog.Batches() {
		if b1.Num.IsPromotional() {
			continue
		}
		b2, ok := catalog.Lookup(b1.Num.Next())
		if !ok {
			continue
		}
		pairsFor(price, b1, w, b2, w, func(q1, q2 int) {
			out.Add(TurnOfBatch(
				ticket.BatchAmount{Batch: b1, Quantity: q1},
				ticket.BatchAmount{Batch: b2, Quantity: q2},
			))
		})
	}

	return out
}

// searchBound is the worst-case quantity of any single batch in a sale.
func searchBound(price int64, catalog ticket.Catalog) int {
	minPrice, ok := catalog.MinPrice()
	if !ok {
		return 1
	}
	return int(price/minPrice) + 1
}

// quantitiesFor calls emit for every q in [1, limit] with b.Price*q == rest.
func quantitiesFor(rest int64, b ticket.Batch, limit int, emit func(q int)) {
	if b.Price < 0 {
		return
	}
	if b.Price == 0 {
		if rest != 0 {
			return
		}
		for q := 1; q <= limit; q++ {
			emit(q)
		}
		return
	}
	if rest <= 0 || rest%b.Price != 0 {
		return
	}
	if q := rest / b.Price; q <= int64(limit) {
		emit(int(q))
	}
}

// pairsFor calls emit for every (qa, qb) in [1, la] x [1, lb] with
// a.Price*qa + b.Price*qb == price.
func pairsFor(price int64, a ticket.Batch, la int, b ticket.Batch, lb int, emit func(qa, qb int)) {
	if a.Price < 0 || b.Price < 0 {
		return
	}
	for qa := 1; qa <= la; qa++ {
		rest := price - a.Price*int64(qa)
		if rest < 0 {
			break
		}
		quantitiesFor(rest, b, lb, func(qb int) { emit(qa, qb) })
	}
}
