package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/learning"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/mapping"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// MappingRouter exposes the mapping engine over HTTP.
type MappingRouter struct {
	templates    *template.Repository
	orchestrator *mapping.Service
	learning     *learning.Service
	sources      *source.Client
	log          zerolog.Logger
}

// NewMappingRouter wires the HTTP surface.
func NewMappingRouter(
	templates *template.Repository,
	orchestrator *mapping.Service,
	learningSvc *learning.Service,
	sourceClient *source.Client,
	log zerolog.Logger,
) *MappingRouter {
	return &MappingRouter{
		templates:    templates,
		orchestrator: orchestrator,
		learning:     learningSvc,
		sources:      sourceClient,
		log:          log,
	}
}

// SetupRoutes builds the router.
func (mr *MappingRouter) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/ivr", func(r chi.Router) {
		r.Get("/manufacturers", mr.handleManufacturers)
		r.Post("/{manufacturer}/map", mr.handleMap)
		r.Post("/outcomes", mr.handleOutcome)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

type mapRequest struct {
	SourceFields []source.SourceField `json:"source_fields"`

	// FHIRURL and OCRURL point at upstream collaborators whose output is
	// fetched and flattened into additional source fields.
	FHIRURL string `json:"fhir_url,omitempty"`
	OCRURL  string `json:"ocr_url,omitempty"`

	// Static requests a defaults-only mapping, e.g. after a timeout.
	Static bool `json:"static,omitempty"`
}

func (mr *MappingRouter) handleMap(w http.ResponseWriter, r *http.Request) {
	manufacturer := chi.URLParam(r, "manufacturer")

	tmpl, err := mr.templates.GetTemplate(manufacturer)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req mapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	for i := range req.SourceFields {
		if req.SourceFields[i].Provenance == "" {
			req.SourceFields[i].Provenance = source.ProvenanceForm
		}
	}

	if req.FHIRURL != "" {
		fields, err := mr.sources.FetchFHIR(r.Context(), req.FHIRURL)
		if err != nil {
			writeError(w, http.StatusBadGateway, "failed to fetch FHIR source: "+err.Error())
			return
		}
		req.SourceFields = append(req.SourceFields, fields...)
	}
	if req.OCRURL != "" {
		fields, err := mr.sources.FetchOCR(r.Context(), req.OCRURL)
		if err != nil {
			writeError(w, http.StatusBadGateway, "failed to fetch OCR source: "+err.Error())
			return
		}
		req.SourceFields = append(req.SourceFields, fields...)
	}

	var result *mapping.Result
	if req.Static {
		result, err = mr.orchestrator.MapStatic(tmpl, req.SourceFields)
	} else {
		result, err = mr.orchestrator.MapTemplate(r.Context(), tmpl, req.SourceFields)
	}
	if err != nil {
		switch {
		case errors.Is(err, mapping.ErrMappingTimeout):
			writeError(w, http.StatusGatewayTimeout, "mapping timed out; retry or request static mapping")
		case errors.Is(err, mapping.ErrTemplateTooLarge):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			mr.log.Error().Err(err).Str("manufacturer", manufacturer).Msg("Mapping request failed")
			writeError(w, http.StatusInternalServerError, "mapping failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type outcomeRequest struct {
	SourceField  string `json:"source_field"`
	TargetField  string `json:"target_field"`
	Manufacturer string `json:"manufacturer"`
	Accepted     bool   `json:"accepted"`
}

func (mr *MappingRouter) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SourceField == "" || req.TargetField == "" || req.Manufacturer == "" {
		writeError(w, http.StatusBadRequest, "source_field, target_field and manufacturer are required")
		return
	}

	// Best-effort by contract: recording never fails the caller.
	mr.learning.RecordOutcome(r.Context(), req.SourceField, req.TargetField, req.Manufacturer, req.Accepted)
	w.WriteHeader(http.StatusAccepted)
}

func (mr *MappingRouter) handleManufacturers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"manufacturers": mr.templates.Manufacturers(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
