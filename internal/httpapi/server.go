// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package httpapi implements the §6.2 deployment-collaborator HTTP
// surface: one process exposes the per-location lowered programs and
// their stable External port ids so a separate deployment tool can
// discover what to run where without re-running the builder itself.
//
// Grounded on cmd/cc-backend/main.go's mux.NewRouter() +
// gorilla/handlers middleware chain, adapted from a GraphQL+REST API
// server to a small read-only introspection surface over one compiled
// program.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/jhellerstein/hydro-sub000/internal/dfir"
	"github.com/jhellerstein/hydro-sub000/internal/location"
	"github.com/jhellerstein/hydro-sub000/internal/render"
	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// Program is the compiled artifact the server introspects: one lowered
// DFIR graph per concrete location, plus the registry that named them.
type Program struct {
	Locs   *location.Registry
	Lowered map[int]*dfir.Graph
}

// NewRouter builds the mux.Router serving Program, wrapped in the same
// compress/recover/CORS/logging middleware chain cmd/cc-backend uses.
func NewRouter(prog *Program) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ports", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, prog.Locs.Ports())
	}).Methods(http.MethodGet)

	r.HandleFunc("/locations", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, prog.Locs.ConcreteLocations())
	}).Methods(http.MethodGet)

	r.HandleFunc("/compile/{id}", func(w http.ResponseWriter, req *http.Request) {
		g, err := prog.lookup(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, g)
	}).Methods(http.MethodGet)

	r.HandleFunc("/render/{id}.{format}", func(w http.ResponseWriter, req *http.Request) {
		g, err := prog.lookup(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		switch mux.Vars(req)["format"] {
		case "mmd":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprint(w, render.ToMermaid(g))
		case "dot":
			w.Header().Set("Content-Type", "text/vnd.graphviz")
			fmt.Fprint(w, render.ToDot(g))
		default:
			http.Error(w, "unsupported render format, want .mmd or .dot", http.StatusBadRequest)
		}
	}).Methods(http.MethodGet)

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	r.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowedMethods([]string{"GET"}),
		handlers.AllowedOrigins([]string{"*"})))

	return handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Infof("%s %s (%d, %.02fkb, %dms)",
			params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, float32(params.Size)/1024,
			time.Since(params.TimeStamp).Milliseconds())
	})
}

// lookup resolves the {id} path variable (a location registry id) to
// its lowered graph.
func (p *Program) lookup(req *http.Request) (*dfir.Graph, error) {
	idStr := mux.Vars(req)["id"]
	idStr = strings.TrimSuffix(idStr, "")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid location id %q", idStr)
	}
	g, ok := p.Lowered[id]
	if !ok {
		return nil, fmt.Errorf("no lowered program for location id %d", id)
	}
	return g, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Errorf("httpapi: encode response: %s", err)
	}
}
