package refine_test

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/refine"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/space"
)

// ExampleController drives an adaptive sparse-grid refinement of
// f = 1 + x + y + xy in a plain loop.
func ExampleController() {
	sp := space.New()
	for _, name := range []string{"x", "y"} {
		d, _ := dist.NewUniform(name, -1, 1)
		_ = sp.Bind(name, d)
	}
	c, err := refine.New(sp, []string{"f"})
	if err != nil {
		fmt.Println(err)
		return
	}

	for !c.Done() {
		var batch []sampler.Result
		for {
			ready, _ := c.StillReady()
			if !ready {
				break
			}
			in, _ := c.GenerateNextInput()
			x, y := in.SampledVars["x"], in.SampledVars["y"]
			batch = append(batch, sampler.Result{
				Prefix:  in.Prefix,
				Outputs: sampler.Outputs{Values: map[string]float64{"f": 1 + x + y + x*y}},
			})
		}
		if err = c.OnPointsCollected(batch); err != nil {
			fmt.Println(err)
			return
		}
	}

	pce, _ := c.Finalize()
	fmt.Println(c.State(), c.Accepted())
	fmt.Printf("mean=%.4f variance=%.4f\n", pce.Mean("f"), pce.Variance("f"))
	// Output:
	// Converged [(0,0) (0,1) (0,2) (1,0) (1,1) (2,0)]
	// mean=1.0000 variance=0.7778
}
