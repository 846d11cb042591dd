// Package mip describes binary integer programs independently of the solver
// that eventually runs them.
package mip

import (
	"context"
	"errors"
	"time"
)

// Bound is the kind of bound a row carries
type Bound int

const (
	// Fixed rows require lhs == Value
	Fixed Bound = iota
	// Upper rows require lhs <= Value
	Upper
	// Lower rows require lhs >= Value
	Lower
)

// Column is a binary decision variable
type Column struct {
	Name string
	Cost float64
}

// Row is one linear constraint over columns
type Row struct {
	Name  string
	Bound Bound
	Value float64
	Index []int
	Coef  []float64
}

// Program is a minimisation over binary columns
type Program struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// NewProgram creates an empty program
func NewProgram(name string) *Program {
	return &Program{Name: name}
}

// AddColumn appends a binary column and returns its 0-based index
func (p *Program) AddColumn(name string, cost float64) int {
	p.Columns = append(p.Columns, Column{Name: name, Cost: cost})
	return len(p.Columns) - 1
}

// AddRow appends a constraint and returns its 0-based index
func (p *Program) AddRow(name string, bound Bound, value float64, index []int, coef []float64) int {
	p.Rows = append(p.Rows, Row{Name: name, Bound: bound, Value: value, Index: index, Coef: coef})
	return len(p.Rows) - 1
}

func (r Row) satisfied(lhs float64) bool {
	const eps = 1e-9
	switch r.Bound {
	case Fixed:
		return lhs > r.Value-eps && lhs < r.Value+eps
	case Upper:
		return lhs < r.Value+eps
	default:
		return lhs > r.Value-eps
	}
}

// TriviallyInfeasible reports whether a row without columns already
// violates its bound
func (p *Program) TriviallyInfeasible() bool {
	for _, r := range p.Rows {
		if len(r.Index) == 0 && !r.satisfied(0) {
			return true
		}
	}
	return false
}

// Evaluate returns the objective of x and whether x satisfies every row
func (p *Program) Evaluate(x []bool) (float64, bool) {
	obj := 0.0
	for j, on := range x {
		if on {
			obj += p.Columns[j].Cost
		}
	}
	for _, r := range p.Rows {
		lhs := 0.0
		for k, j := range r.Index {
			if x[j] {
				lhs += r.Coef[k]
			}
		}
		if !r.satisfied(lhs) {
			return obj, false
		}
	}
	return obj, true
}

// Status is the outcome of a solve
type Status int

const (
	Unknown Status = iota
	Optimal
	Feasible
	Infeasible
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Solution is what a solver reports for a program
type Solution struct {
	Status    Status
	Objective float64
	Values    []bool
}

// Solver runs a program to completion
type Solver interface {
	Solve(ctx context.Context, p *Program) (*Solution, error)
}

// ErrEmptyProgram is returned by solvers handed a program without columns
var ErrEmptyProgram = errors.New("program has no columns")

// SolveWithBudget runs s on p under a wall-clock limit. Expiry yields a
// TimedOut solution. A solver that ignores ctx keeps running in the
// background until it finishes on its own; it holds only p, which callers
// must not reuse.
func SolveWithBudget(ctx context.Context, s Solver, p *Program, limit time.Duration) (*Solution, error) {
	if p.TriviallyInfeasible() {
		return &Solution{Status: Infeasible}, nil
	}
	if len(p.Columns) == 0 {
		obj, ok := p.Evaluate(nil)
		if !ok {
			return &Solution{Status: Infeasible}, nil
		}
		return &Solution{Status: Optimal, Objective: obj}, nil
	}

	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	type outcome struct {
		sol *Solution
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		sol, err := s.Solve(ctx, p)
		done <- outcome{sol, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Solution{Status: TimedOut}, nil
	}
	return out.sol, out.err
}
