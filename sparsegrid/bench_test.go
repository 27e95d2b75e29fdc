package sparsegrid_test

import (
	"fmt"
	"testing"

	"github.com/katalvlaran/lvlsample/indexset"
	"github.com/katalvlaran/lvlsample/quadrature"
	"github.com/katalvlaran/lvlsample/sparsegrid"
)

// BenchmarkBuild_TotalDegree builds total-degree Smolyak grids of growing dimension.
func BenchmarkBuild_TotalDegree(b *testing.B) {
	for _, dim := range []int{2, 4, 6} {
		names := make([]string, dim)
		for i := range names {
			names[i] = fmt.Sprintf("x%d", i+1)
		}
		builder := uniformBuilder(b, quadrature.Legendre, names...)
		set, err := indexset.TotalDegree(dim, nil, 4)
		if err != nil {
			b.Fatal(err)
		}

		b.Run(fmt.Sprintf("dim=%d", dim), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = builder.Build(set, nil)
			}
		})
	}
}

// BenchmarkCombinationCoefficients measures the Smolyak coefficient pass alone.
func BenchmarkCombinationCoefficients(b *testing.B) {
	set, err := indexset.HyperbolicCross(5, nil, 16)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sparsegrid.CombinationCoefficients(set)
	}
}
