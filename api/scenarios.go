/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:
  Provides built-in sales exports with matching pricing configs. Loading a
  scenario processes it exactly like a submitted run and stores the result,
  so the rows, report and export endpoints have something to show.

AVAILABLE SCENARIOS:
  kiosk-day:       Two kiosks selling through the first batches, seller resolver
  online-presale:  Online sales with a 10% fee, temporal resolver
  promo-limit:     A promo combo cap that removes an ambiguity

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "kiosk-day"}

ADDING NEW SCENARIOS:
  Append to 'scenarios' with an ID, a CSV export and a YAML config.

SEE ALSO:
  - handlers.go: processRun, shared with CreateRun
  - factory/pricing.go: Config schema
*/
package api

import (
	"net/http"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	CSV    string
	Config string
}

const scenarioHeader = "date,buyer_email,buyer_username,amount,kind,seller_name,seller_id,seller_email,token,sale_id,card_name,card_prefix,card_suffix\n"

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "kiosk-day",
			Name:        "Kiosk Day",
			Description: "Two kiosks move from batch 1 to batch 2 during the day",
		},
		Config: `name: Kiosk Day
online_fee: {numerator: 11, denominator: 10}
prices: ["50.00", "60.00", "90.00"]
resolver: seller
`,
		CSV: scenarioHeader +
			"2024-03-01T10:00:00-03:00,N/A,N/A,60.00,Ponto de venda,Kiosk-A,K1,a@kiosk.test,tk01,kd01,N/A,N/A,N/A\n" +
			"2024-03-01T10:20:00-03:00,N/A,N/A,180.00,Ponto de venda,Kiosk-A,K1,a@kiosk.test,tk02,kd02,N/A,N/A,N/A\n" +
			"2024-03-01T11:00:00-03:00,N/A,N/A,90.00,Ponto de venda,Kiosk-B,K2,b@kiosk.test,tk03,kd03,N/A,N/A,N/A\n" +
			"2024-03-01T11:30:00-03:00,N/A,N/A,180.00,Ponto de venda,Kiosk-B,K2,b@kiosk.test,tk04,kd04,N/A,N/A,N/A\n" +
			"2024-03-01T12:00:00-03:00,N/A,N/A,150.00,Ponto de venda,Kiosk-A,K1,a@kiosk.test,tk05,kd05,N/A,N/A,N/A\n" +
			"2024-03-01T12:30:00-03:00,N/A,N/A,70.00,Ponto de venda,Kiosk-A,K1,a@kiosk.test,tk06,kd06,N/A,N/A,N/A\n",
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "online-presale",
			Name:        "Online Presale",
			Description: "Online sales with a 10% fee resolved by sale order",
		},
		Config: `name: Online Presale
online_fee: {numerator: 11, denominator: 10}
prices: ["50.00", "60.00", "90.00"]
resolver: temporal
`,
		CSV: scenarioHeader +
			"2024-02-10T09:00:00Z,ana@buyer.test,ana,66.00,Venda Online,N/A,N/A,N/A,op01,pr01,VISA,4111,1111\n" +
			"2024-02-10T09:05:00Z,bia@buyer.test,bia,132.00,Venda Online,N/A,N/A,N/A,op02,pr02,MASTER,5500,0004\n" +
			"2024-02-10T09:30:00Z,caio@buyer.test,caio,198.00,Venda Online,N/A,N/A,N/A,op03,pr03,VISA,4111,2222\n" +
			"2024-02-10T10:00:00Z,duda@buyer.test,duda,99.00,Venda Online,N/A,N/A,N/A,op04,pr04,VISA,4111,3333\n",
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "promo-limit",
			Name:        "Promo Limit",
			Description: "Promo tickets capped at two per promo combo",
		},
		Config: `name: Promo Limit
prices: ["50.00", "60.00", "90.00"]
promo_limit: 2
resolver: none
`,
		CSV: scenarioHeader +
			"2024-01-05T18:00:00-03:00,N/A,N/A,210.00,Ponto de venda,Gate,G1,N/A,pl01,pl01,N/A,N/A,N/A\n" +
			"2024-01-05T18:10:00-03:00,N/A,N/A,100.00,Ponto de venda,Gate,G1,N/A,pl02,pl02,N/A,N/A,N/A\n" +
			"2024-01-05T18:20:00-03:00,N/A,N/A,110.00,Ponto de venda,Gate,G1,N/A,pl03,pl03,N/A,N/A,N/A\n",
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the built-in scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario processes a scenario and stores it as a new run.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", req.ScenarioID)
		return
	}

	run, err := h.processRun(r.Context(), s.Name, s.CSV, []byte(s.Config), "")
	if err != nil {
		writeProcessError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunDTO(run, true))
}
