package api

import (
	"net/http"

	"github.com/recordkit/recordkit/pkg/contextkeys"
	"github.com/recordkit/recordkit/pkg/httputil"
	"github.com/recordkit/recordkit/pkg/lifecycle"
)

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	var input lifecycle.Input
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	actor := contextkeys.GetActor(r.Context())
	rec, err := s.service.Create(r.Context(), actor, input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreatedMessage(w, "record created successfully", rec)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	actor := contextkeys.GetActor(r.Context())
	rec, err := s.service.Get(r.Context(), actor, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, rec)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var input lifecycle.Input
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}
	// The path is authoritative for the id.
	input["id"] = id

	actor := contextkeys.GetActor(r.Context())
	rec, err := s.service.Update(r.Context(), actor, input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "record updated successfully", rec)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	input := lifecycle.Input{"id": id}
	if version, err := httputil.ParseQueryInt(r, "lock_version", 0); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	} else if version > 0 {
		input["lock_version"] = version
	}
	// A JSON body may carry lock_version instead of the query string.
	if r.ContentLength > 0 {
		var body lifecycle.Input
		if !httputil.ParseJSONOrError(w, r, &body) {
			return
		}
		if v, present := body["lock_version"]; present {
			input["lock_version"] = v
		}
	}

	actor := contextkeys.GetActor(r.Context())
	rec, err := s.service.Delete(r.Context(), actor, input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "record deleted successfully", rec)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	req := lifecycle.ListRequest{
		Name:         httputil.ParseQueryString(r, "name", ""),
		NameExact:    httputil.ParseQueryString(r, "name_exact", ""),
		Search:       httputil.ParseQueryString(r, "q", ""),
		CreatedRange: httputil.ParseQueryString(r, "created_at", ""),
		UpdatedRange: httputil.ParseQueryString(r, "updated_at", ""),
		SortBy:       httputil.ParseQueryString(r, "sort", ""),
		SortOrder:    httputil.ParseQueryString(r, "order", ""),
	}

	req.IDs = httputil.ParseQueryString(r, "ids", "")

	status, err := httputil.ParseQueryStatus(r, "status")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	req.Status = status

	if req.Page, err = httputil.ParseQueryInt(r, "page", 1); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.Size, err = httputil.ParseQueryInt(r, "size", 0); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	records, page, err := s.service.List(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WritePage(w, records, page)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.service.HealthCheck(r.Context()); err != nil {
		httputil.WriteServiceUnavailable(w, "unhealthy: "+err.Error())
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "healthy"})
}
