package spin

import "testing"

func TestRelaxReturns(t *testing.T) {
	for i := 0; i < 1000; i++ {
		Relax()
	}
}

func BenchmarkRelax(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Relax()
	}
}
