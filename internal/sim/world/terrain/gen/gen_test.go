package gen

import "testing"

var testParams = Params{
	BaseHeight:      68,
	SeaLevel:        62,
	BiomeRegionSize: 256,
	NoiseScale:      64,
}

func TestGroundAt_DeterministicAndBounded(t *testing.T) {
	a := NewField(42, testParams)
	b := NewField(42, testParams)
	for x := -300; x <= 300; x += 37 {
		for z := -300; z <= 300; z += 41 {
			h := a.GroundAt(x, z)
			if h != b.GroundAt(x, z) {
				t.Fatalf("GroundAt(%d,%d) not deterministic", x, z)
			}
			if h < testParams.BaseHeight-40 || h > testParams.BaseHeight+40 {
				t.Fatalf("GroundAt(%d,%d) = %d out of range", x, z, h)
			}
			if InLake(42, x, z, testParams.LakeProbScalePermille) && h > testParams.SeaLevel-lakeDepth {
				t.Fatalf("lake column (%d,%d) at %d", x, z, h)
			}
		}
	}
}

func TestGroundAt_SeedsDiffer(t *testing.T) {
	a := NewField(1, testParams)
	b := NewField(2, testParams)
	for x := 0; x < 512; x += 8 {
		if a.GroundAt(x, 3*x) != b.GroundAt(x, 3*x) {
			return
		}
	}
	t.Fatalf("seeds 1 and 2 produced identical terrain")
}

func TestWaterAt(t *testing.T) {
	if w, ok := WaterAt(50, testParams); !ok || w != 62 {
		t.Fatalf("below sea: %d %v", w, ok)
	}
	if w, ok := WaterAt(70, testParams); ok || w != 70 {
		t.Fatalf("above sea: %d %v", w, ok)
	}
}

func TestBiomeAt_ConstantWithinRegion(t *testing.T) {
	b := BiomeAt(7, 0, 0, 256)
	for _, p := range [][2]int{{255, 0}, {0, 255}, {128, 200}} {
		if got := BiomeAt(7, p[0], p[1], 256); got != b {
			t.Fatalf("biome at %v = %s, want %s", p, got, b)
		}
	}
	if BiomeAt(7, 5, 5, 0) == "" {
		t.Fatalf("zero region size must still resolve")
	}
}

func TestScalePermille(t *testing.T) {
	cases := []struct {
		base  uint64
		scale int
		want  uint64
	}{
		{300, 0, 300},
		{300, 1000, 300},
		{300, 2000, 600},
		{300, 500, 150},
		{800, 2000, 1000},
	}
	for _, tc := range cases {
		if got := ScalePermille(tc.base, tc.scale); got != tc.want {
			t.Fatalf("ScalePermille(%d,%d) = %d, want %d", tc.base, tc.scale, got, tc.want)
		}
	}
}

func TestInCluster_Extremes(t *testing.T) {
	if InCluster(1, 10, 10, 96, 10, 0) {
		t.Fatalf("zero probability matched")
	}
	// With certain clusters and a radius covering the whole grid cell every
	// column is inside one.
	for x := -50; x <= 50; x += 25 {
		if !InCluster(1, x, x, 16, 32, 1000) {
			t.Fatalf("column %d not in cluster", x)
		}
	}
}
