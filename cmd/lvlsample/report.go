// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/katalvlaran/lvlsample/config"
	"github.com/katalvlaran/lvlsample/det"
	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/executor"
	"github.com/katalvlaran/lvlsample/refine"
	"github.com/katalvlaran/lvlsample/rng"
	"github.com/katalvlaran/lvlsample/rom"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/sobol"
	"github.com/katalvlaran/lvlsample/space"
)

// surrogate is what the sparse-grid and HDMR results share.
type surrogate interface {
	Mean(target string) float64
	Variance(target string) float64
	Evaluate(x sampler.Point) (map[string]float64, error)
	SobolIndices(target string) (first, total []float64)
}

var (
	_ surrogate = (*rom.PCE)(nil)
	_ surrogate = (*sobol.HDMR)(nil)
)

// report prints the outcome of a finished strategy.
func report(ctx context.Context, w io.Writer, study *config.File, s sampler.Strategy, model executor.Model) error {
	switch st := s.(type) {
	case *refine.Controller:
		fmt.Fprintf(w, "sampler:  %s\nstate:    %s", study.Sampler, st.State())
		printReason(w, st.Reason())
		fmt.Fprintf(w, "runs:     %d\nresidual: %.4g\nerrors:   %d\n", st.Store().Len(), st.Residual(), len(st.Errors()))
		pce, err := st.Finalize()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "indices:  %d accepted\n", len(st.Accepted()))
		return surrogateReport(ctx, w, study, st.Features(), pce, model)

	case *sobol.Composer:
		fmt.Fprintf(w, "sampler:  %s\nstate:    %s", study.Sampler, st.State())
		printReason(w, st.Reason())
		fmt.Fprintf(w, "runs:     %d\nresidual: %.4g\nerrors:   %d\n", st.Store().Len(), st.Residual(), len(st.Errors()))
		h, err := st.Finalize()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "\nsubsets:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  subset\tweight\tshare")
		for _, c := range h.Components() {
			if len(c.Subset) == 0 {
				continue
			}
			fmt.Fprintf(tw, "  [%s]\t%+.0f\t%.4f\n", strings.Join(c.Names, " "), c.Weight, c.Actual)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if props := st.Proposals(); len(props) > 0 {
			fmt.Fprintf(w, "open proposals: %d\n", len(props))
		}
		return surrogateReport(ctx, w, study, st.Features(), h, model)

	case *det.Manager:
		return treeReport(w, study, st)
	}

	return fmt.Errorf("lvlsample: cannot report on %T", s)
}

func printReason(w io.Writer, reason string) {
	if reason != "" {
		fmt.Fprintf(w, " (%s)", reason)
	}
	fmt.Fprintln(w)
}

// surrogateReport prints moments, Sobol indices and the Monte-Carlo check.
func surrogateReport(ctx context.Context, w io.Writer, study *config.File, features []string, sur surrogate, model executor.Model) error {
	for _, t := range study.Targets {
		fmt.Fprintf(w, "\ntarget %s: mean %.6g  variance %.6g\n", t, sur.Mean(t), sur.Variance(t))
		first, total := sur.SobolIndices(t)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  variable\tfirst\ttotal")
		for i, f := range features {
			fmt.Fprintf(tw, "  %s\t%.4f\t%.4f\n", f, first[i], total[i])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if study.ValidationSamples == 0 {
		return nil
	}

	sp, err := study.Space()
	if err != nil {
		return err
	}
	checks, err := validateSurrogate(ctx, sp, model, sur, study.Targets, study.ValidationSamples, study.Seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nvalidation (%d Monte-Carlo samples, seed %d):\n", study.ValidationSamples, study.Seed)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  target\tmc mean\tmc variance\trmse\trelative")
	for _, c := range checks {
		fmt.Fprintf(tw, "  %s\t%.6g\t%.6g\t%.4g\t%.4g\n", c.Target, c.Mean, c.Variance, c.RMSE, c.Relative())
	}

	return tw.Flush()
}

// validation compares model and surrogate on random draws for one target.
type validation struct {
	Target   string
	Mean     float64 // model sample mean
	Variance float64 // model sample variance
	RMSE     float64 // root mean squared surrogate error
}

// Relative is RMSE over the sample standard deviation (RMSE when the
// variance is zero).
func (v validation) Relative() float64 {
	if v.Variance <= 0 {
		return v.RMSE
	}

	return v.RMSE / math.Sqrt(v.Variance)
}

// validateSurrogate draws n points from the space, runs the model on each
// and accumulates the surrogate error per target.
func validateSurrogate(ctx context.Context, sp *space.Space, model executor.Model, sur surrogate,
	targets []string, n int, seed int64) ([]validation, error) {
	r := rng.New(seed)
	dists := sp.Distributions()
	sum := make([]float64, len(targets))
	sumSq := make([]float64, len(targets))
	errSq := make([]float64, len(targets))
	for i := 0; i < n; i++ {
		p := make(sampler.Point, len(dists))
		for k, d := range dists {
			p[k] = dist.Sample(d, r)
		}
		vars, pbs, prob, err := sp.Vars(p)
		if err != nil {
			return nil, err
		}
		out, err := model.Evaluate(ctx, sampler.Input{
			Prefix:           fmt.Sprintf("validation-%d", i+1),
			Point:            p,
			SampledVars:      vars,
			SampledVarsPb:    pbs,
			PointProbability: prob,
		})
		if err != nil {
			return nil, fmt.Errorf("validation run %d: %w", i+1, err)
		}
		pred, err := sur.Evaluate(p)
		if err != nil {
			return nil, err
		}
		for k, t := range targets {
			y, ok := out.Values[t]
			if !ok {
				return nil, fmt.Errorf("validation run %d: %w: %q", i+1, rom.ErrMissingTarget, t)
			}
			sum[k] += y
			sumSq[k] += y * y
			e := pred[t] - y
			errSq[k] += e * e
		}
	}

	out := make([]validation, len(targets))
	fn := float64(n)
	for k, t := range targets {
		mean := sum[k] / fn
		variance := 0.0
		if n > 1 {
			variance = math.Max(0, (sumSq[k]-fn*mean*mean)/(fn-1))
		}
		out[k] = validation{Target: t, Mean: mean, Variance: variance, RMSE: math.Sqrt(errSq[k] / fn)}
	}

	return out, nil
}

// treeReport prints the leaves of a dynamic event tree and the expected
// value of every target.
func treeReport(w io.Writer, study *config.File, m *det.Manager) error {
	sum := m.Finalize()
	fmt.Fprintf(w, "sampler:  %s\nstate:    %s\nbranches: %d (%d run)\nerrors:   %d\n",
		study.Sampler, m.State(), m.Len(), m.Started(), len(m.Errors()))
	fmt.Fprintf(w, "leaves:   %d completed, %d failed, %d truncated, %d unfinished\n",
		sum.Completed, sum.Failed, sum.Truncated, sum.Unfinished)
	fmt.Fprintf(w, "leaf probability: %.6g (ended %.6g)\n\n", sum.LeafProbability, sum.EndedProbability)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  branch\tstatus\tprobability\tend time")
	for _, id := range sum.Leaves {
		b := sum.Branches[id]
		fmt.Fprintf(tw, "  %s\t%s\t%.6g\t%.4g\n", b.Name, b.Status, b.ConditionalPb, b.EndTime)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	for _, t := range study.Targets {
		if mean, ok := sum.Expected(t); ok {
			fmt.Fprintf(w, "expected %s: %.6g\n", t, mean)
		} else {
			fmt.Fprintf(w, "expected %s: n/a\n", t)
		}
	}

	return nil
}
