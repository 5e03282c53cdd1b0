package grammar

import "testing"

func TestSamplerDerivationsParse(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		s := NewSampler(seed)
		for i := 0; i < 200; i++ {
			stmt := s.Statement()
			if _, err := Parse(stmt); err != nil {
				t.Fatalf("seed %d derivation %d rejected: %q: %v", seed, i, stmt, err)
			}
		}
	}
}

func TestSamplerSeedStability(t *testing.T) {
	a, b := NewSampler(42), NewSampler(42)
	for i := 0; i < 20; i++ {
		if got, want := a.Statement(), b.Statement(); got != want {
			t.Fatalf("draw %d differs: %q vs %q", i, got, want)
		}
	}
}

func TestSamplerStaysOnOrders(t *testing.T) {
	s := NewSampler(7)
	for i := 0; i < 100; i++ {
		stmt, err := Parse(s.Statement())
		if err != nil {
			t.Fatalf("derivation %d rejected: %v", i, err)
		}
		if stmt.Table != TableName {
			t.Fatalf("derivation %d targets %q", i, stmt.Table)
		}
	}
}
