package det_test

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/det"
	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/sampler"
)

// ExampleManager grows a two-threshold tree: the pump may fail at either
// threshold; on the last one the history can only continue failed.
func ExampleManager() {
	pump, _ := dist.NewUniform("pump", 0, 1)
	m, _ := det.New([]det.Variable{{Distribution: pump, Thresholds: []float64{0.3, 0.7}}})

	for !m.Done() {
		var batch []sampler.Result
		for {
			ready, _ := m.StillReady()
			if !ready {
				break
			}
			in, _ := m.GenerateNextInput()
			res := sampler.Result{Prefix: in.Prefix}
			if _, open := in.Branch.Thresholds["pump"]; open && in.Branch.ChangedParams["pump_state"] == "" {
				res.Outputs.TriggerData, _ = det.MarshalTrigger(&det.Trigger{
					Distribution: "pump",
					Params:       []det.ParamChange{{Name: "pump_state", ActualValues: []string{"failed"}}},
				})
			}
			batch = append(batch, res)
		}
		_ = m.OnPointsCollected(batch)
	}

	sum := m.Finalize()
	names, pb := sum.Probabilities()
	for _, n := range names {
		fmt.Printf("%s %.2f\n", n, pb[n])
	}
	fmt.Printf("total %.2f\n", sum.LeafProbability)
	// Output:
	// 1-1-1 0.70
	// 1-2 0.30
	// total 1.00
}
