package api

import (
	"encoding/json"
	"net/http"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/jurisdiction"
	"github.com/codewithboateng/cbcnorm/internal/rules"
)

type resolveReq struct {
	Axis      string `json:"axis"`
	Source    string `json:"source"`
	Group     string `json:"group,omitempty"`
	EndOfYear string `json:"end_of_year,omitempty"`
}

type resolveResp struct {
	Source string `json:"source"`
	Sink   string `json:"sink,omitempty"`
	Method string `json:"method,omitempty"`
	Scope  string `json:"scope,omitempty"`
	Score  int    `json:"score,omitempty"`
	Found  bool   `json:"found"`
}

// POST /api/v1/resolve answers "what would this label map to" without
// running anything: the same strict, regex, then automatic lookup a run
// performs, against the live rule book.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var in resolveReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.err(w, http.StatusBadRequest, "invalid json")
		return
	}
	axis, ok := rules.ParseAxis(in.Axis)
	if !ok {
		s.err(w, http.StatusBadRequest, "axis must be column or jurisdiction")
		return
	}
	if in.Source == "" {
		s.err(w, http.StatusBadRequest, "source required")
		return
	}
	rep := cbc.Report{GroupName: in.Group, EndOfYear: in.EndOfYear}

	source := in.Source
	if axis == rules.AxisColumn {
		// column headers are cleaned before lookup, like in a run
		source = jurisdiction.Neatify(source)
	}
	out := resolveResp{Source: source}

	sink, scope, hit, err := s.Book.SinkStrict(rep, source, axis)
	if err != nil {
		s.err(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hit {
		out.Sink, out.Method, out.Scope, out.Found = sink, cbc.MethodStrict, scope.String(), true
		writeJSON(w, http.StatusOK, out)
		return
	}
	sink, scope, hit, err = s.Book.SinkRegex(rep, source, axis)
	if err != nil {
		s.err(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hit {
		out.Sink, out.Method, out.Scope, out.Found = sink, cbc.MethodRegex, scope.String(), true
		writeJSON(w, http.StatusOK, out)
		return
	}
	if axis == rules.AxisJurisdiction {
		res := s.Index.ToISO3166(in.Source)
		out.Sink, out.Method, out.Score = res.Value, res.Method, res.Score
		out.Found = res.Method != cbc.MethodUnmapped && res.Method != cbc.MethodEmpty
	}
	writeJSON(w, http.StatusOK, out)
}
