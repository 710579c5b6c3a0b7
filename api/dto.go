/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger and store types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Runs:
    CreateRunRequest, RunDTO, RowDTO

  Candidates:
    CandidateRequest, CandidateDTO, MatchDTO

  Resolvers:
    ResolverDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

CONFIG FIELDS:
  A "config" field accepts either a JSON object or a string holding a
  YAML (or JSON) document. See configBytes.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/pricing.go: PricingConfig schema
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/ticket-recon/pricing"
	"github.com/warp/ticket-recon/report"
	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/store"
)

// =============================================================================
// RUNS
// =============================================================================

// CreateRunRequest submits a sales export for processing.
type CreateRunRequest struct {
	Name     string          `json:"name"`
	CSV      string          `json:"csv"`
	Config   json.RawMessage `json:"config"`
	Resolver string          `json:"resolver,omitempty"` // overrides the config's resolver
}

// RunDTO represents a processed run. Report is omitted in listings.
type RunDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Resolver    string          `json:"resolver"`
	CreatedAt   time.Time       `json:"created_at"`
	Sales       int             `json:"sales"`
	Settled     int             `json:"settled"`
	Ambiguous   int             `json:"ambiguous"`
	Unmatched   int             `json:"unmatched"`
	Passes      int             `json:"passes"`
	Resolved    int             `json:"resolved"`
	ParseErrors []string        `json:"parse_errors"`
	Config      json.RawMessage `json:"config,omitempty"`
	Report      *report.Report  `json:"report,omitempty"`
}

// RowDTO is one sale of a run's enriched export.
type RowDTO struct {
	Date          time.Time    `json:"date"`
	BuyerEmail    string       `json:"buyer_email,omitempty"`
	BuyerUsername string       `json:"buyer_username,omitempty"`
	Amount        string       `json:"amount"`
	Kind          string       `json:"kind"`
	Online        bool         `json:"online"`
	SellerName    string       `json:"seller_name,omitempty"`
	SellerID      string       `json:"seller_id,omitempty"`
	SellerEmail   string       `json:"seller_email,omitempty"`
	Token         string       `json:"token"`
	SaleID        string       `json:"sale_id"`
	Status        store.Status `json:"status"`
	Resolved      bool         `json:"resolved"`
	Decoding      string       `json:"decoding"`
}

// =============================================================================
// CANDIDATES
// =============================================================================

// CandidateRequest asks how a single amount decomposes. With Online set,
// the amount is taken as paid and the configured fee is undone first.
type CandidateRequest struct {
	Amount string          `json:"amount"`
	Online bool            `json:"online,omitempty"`
	Config json.RawMessage `json:"config"`
}

// CandidateDTO is the candidate set for one real price.
type CandidateDTO struct {
	RealPrice string     `json:"real_price"`
	Outcome   string     `json:"outcome"`
	Decoding  string     `json:"decoding"`
	Matches   []MatchDTO `json:"matches"`
}

// MatchDTO describes one decomposition.
type MatchDTO struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Tickets     int    `json:"tickets"`
	Price       string `json:"price"`
}

// =============================================================================
// RESOLVERS & SCENARIOS
// =============================================================================

// ResolverDTO describes an available resolver.
type ResolverDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRunDTO(run store.Run, detail bool) RunDTO {
	dto := RunDTO{
		ID:          run.ID,
		Name:        run.Name,
		Resolver:    run.Resolver,
		CreatedAt:   run.CreatedAt,
		Sales:       run.Sales,
		Settled:     run.Settled,
		Ambiguous:   run.Ambiguous,
		Unmatched:   run.Unmatched,
		Passes:      run.Passes,
		Resolved:    run.Resolved,
		ParseErrors: run.ParseErrors,
	}
	if dto.ParseErrors == nil {
		dto.ParseErrors = []string{}
	}
	if detail {
		if json.Valid([]byte(run.ConfigJSON)) {
			dto.Config = json.RawMessage(run.ConfigJSON)
		}
		rep := run.Report
		dto.Report = &rep
	}
	return dto
}

func toRowDTO(row sale.ExportRow) RowDTO {
	rec := row.Record
	return RowDTO{
		Date:          rec.When,
		BuyerEmail:    rec.BuyerEmail,
		BuyerUsername: rec.BuyerUsername,
		Amount:        sale.FormatCents(rec.Paid),
		Kind:          rec.KindLabel,
		Online:        rec.Channel.IsOnline(),
		SellerName:    rec.SellerName,
		SellerID:      rec.SellerID,
		SellerEmail:   rec.SellerEmail,
		Token:         rec.Token,
		SaleID:        rec.SaleID,
		Status:        store.StatusOf(row),
		Resolved:      row.Resolved,
		Decoding:      row.Decoding,
	}
}

func toCandidateDTO(price int64, c pricing.Candidate) CandidateDTO {
	dto := CandidateDTO{
		RealPrice: sale.FormatCents(price),
		Outcome:   c.Outcome().String(),
		Decoding:  c.String(),
		Matches:   make([]MatchDTO, 0, c.Len()),
	}
	for _, m := range c.Matches() {
		dto.Matches = append(dto.Matches, MatchDTO{
			Kind:        m.Kind.String(),
			Description: m.String(),
			Tickets:     m.Tickets(),
			Price:       sale.FormatCents(m.Price()),
		})
	}
	return dto
}
