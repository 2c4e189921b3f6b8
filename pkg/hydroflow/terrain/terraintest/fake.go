// Package terraintest provides a recording terrain Runner for tests.
package terraintest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
)

// TableFunc produces the table a table-returning request should yield.
type TableFunc func(req terrain.Request) *terrain.Table

// Fake records every request and materialises its output file so that
// later stages find the paths they were promised. Table-returning
// operations write the table scripted for their op.
type Fake struct {
	mu       sync.Mutex
	requests []terrain.Request

	// Tables scripts table results by op.
	Tables map[string]TableFunc

	// Errors makes an op fail.
	Errors map[string]error
}

var _ terrain.Runner = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Tables: make(map[string]TableFunc),
		Errors: make(map[string]error),
	}
}

// Service returns a terrain.Service backed by f.
func (f *Fake) Service() terrain.Service {
	return terrain.NewClient(f)
}

// Run implements terrain.Runner.
func (f *Fake) Run(ctx context.Context, req terrain.Request) (*terrain.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	failure := f.Errors[req.Op]
	tableFn := f.Tables[req.Op]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &terrain.Error{Op: req.Op, Err: err}
	}
	if failure != nil {
		return nil, &terrain.Error{Op: req.Op, Stderr: "scripted failure", Err: failure}
	}
	if req.Output == "" {
		return nil, &terrain.Error{Op: req.Op, Err: fmt.Errorf("no output path")}
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return nil, err
	}

	out, err := os.Create(req.Output)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	if tableFn != nil {
		if t := tableFn(req); t != nil {
			if err := t.WriteCSV(out); err != nil {
				return nil, err
			}
		}
	} else {
		fmt.Fprintf(out, "%s\n", req.Op)
	}
	return &terrain.Response{Output: req.Output}, nil
}

// Requests returns every request received, in order.
func (f *Fake) Requests() []terrain.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]terrain.Request(nil), f.requests...)
}

// Ops returns the op names received, in order.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.requests))
	for i, r := range f.requests {
		ops[i] = r.Op
	}
	return ops
}

// Count returns how many times op was requested.
func (f *Fake) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Op == op {
			n++
		}
	}
	return n
}

// Last returns the most recent request for op.
func (f *Fake) Last(op string) (terrain.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Op == op {
			return f.requests[i], true
		}
	}
	return terrain.Request{}, false
}

// Reset forgets recorded requests but keeps scripts.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

// Static returns a TableFunc that always yields t.
func Static(t *terrain.Table) TableFunc {
	return func(terrain.Request) *terrain.Table { return t }
}
