// Package glpk runs mip programs on the GLPK branch-and-cut solver.
package glpk

import (
	"context"
	"time"

	"github.com/lukpank/go-glpk/glpk"
	"go.uber.org/zap"

	"github.com/arnavshah/workshop-scheduler/pkg/mip"
)

// Solver solves programs with GLPK's intopt
type Solver struct {
	logger *zap.Logger
}

// New creates a GLPK-backed solver
func New(logger *zap.Logger) *Solver {
	return &Solver{logger: logger}
}

// Solve builds the GLPK problem column by column and runs intopt with the
// presolver. The binding exposes no time limit; callers bound the wall clock
// with mip.SolveWithBudget. intopt cannot be interrupted, so a solve abandoned
// on timeout keeps its goroutine and a CPU busy until GLPK returns.
func (s *Solver) Solve(ctx context.Context, p *mip.Program) (*mip.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.Columns) == 0 {
		return nil, mip.ErrEmptyProgram
	}

	lp := glpk.New()
	defer lp.Delete()
	lp.SetProbName(p.Name)
	lp.SetObjDir(glpk.ObjDir(glpk.MIN))

	// GLPK indexes columns and rows from 1.
	lp.AddCols(len(p.Columns))
	for j, col := range p.Columns {
		lp.SetColName(j+1, col.Name)
		lp.SetColKind(j+1, glpk.VarType(glpk.BV))
		lp.SetObjCoef(j+1, col.Cost)
	}

	if len(p.Rows) > 0 {
		lp.AddRows(len(p.Rows))
	}
	for i, row := range p.Rows {
		lp.SetRowName(i+1, row.Name)
		switch row.Bound {
		case mip.Fixed:
			lp.SetRowBnds(i+1, glpk.BndsType(glpk.FX), row.Value, row.Value)
		case mip.Upper:
			lp.SetRowBnds(i+1, glpk.BndsType(glpk.UP), 0, row.Value)
		case mip.Lower:
			lp.SetRowBnds(i+1, glpk.BndsType(glpk.LO), row.Value, 0)
		}
		if len(row.Index) == 0 {
			continue
		}
		// ind[0] and val[0] are ignored by glp_set_mat_row.
		ind := make([]int32, len(row.Index)+1)
		val := make([]float64, len(row.Coef)+1)
		for k, j := range row.Index {
			ind[k+1] = int32(j + 1)
			val[k+1] = row.Coef[k]
		}
		lp.SetMatRow(i+1, ind, val)
	}

	iocp := glpk.NewIocp()
	iocp.SetPresolve(true)
	iocp.SetMsgLev(glpk.MsgLev(glpk.MSG_ERR))

	start := time.Now()
	if err := lp.Intopt(iocp); err != nil {
		// With the presolver on, an infeasible relaxation surfaces as an
		// intopt error rather than a status.
		s.logger.Debug("glpk intopt stopped",
			zap.String("program", p.Name),
			zap.Error(err),
		)
		return &mip.Solution{Status: mip.Infeasible}, nil
	}

	sol := &mip.Solution{}
	switch lp.MipStatus() {
	case glpk.OPT:
		sol.Status = mip.Optimal
	case glpk.FEAS:
		sol.Status = mip.Feasible
	case glpk.NOFEAS:
		sol.Status = mip.Infeasible
	default:
		sol.Status = mip.Unknown
	}

	if sol.Status == mip.Optimal || sol.Status == mip.Feasible {
		sol.Values = make([]bool, len(p.Columns))
		for j := range p.Columns {
			sol.Values[j] = lp.MipColVal(j+1) > 0.5
		}
		sol.Objective, _ = p.Evaluate(sol.Values)
	}

	s.logger.Debug("glpk solve finished",
		zap.String("program", p.Name),
		zap.Int("columns", len(p.Columns)),
		zap.Int("rows", len(p.Rows)),
		zap.Stringer("status", sol.Status),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sol, nil
}
