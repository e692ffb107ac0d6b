package main

import (
	"fmt"
	"io"
	"strings"

	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/model"
)

type mapCmd struct {
	worldOpts `group:"World"`

	Center   coordFlag `short:"c" long:"center" default:"0,0" description:"Center cell as x,z"`
	Radius   int       `short:"r" long:"radius" default:"16" description:"Cells on each side of the center"`
	Adjusted bool      `short:"a" long:"adjusted" description:"Load terrain and show terrain-adjusted kinds"`
	Output   string    `short:"o" long:"output" description:"Output file (default: stdout)"`
}

// Execute renders the map around the center cell.
func (c *mapCmd) Execute(_ []string) error {
	if c.Radius < 0 {
		return fmt.Errorf("radius must be >= 0")
	}
	mgr, rt, err := c.open()
	if err != nil {
		return err
	}
	defer mgr.CloseAll()

	out, err := openOutput(c.Output)
	if err != nil {
		return err
	}
	defer out.Close()
	return renderMap(out, rt, model.Coord(c.Center), c.Radius, c.Adjusted)
}

func renderMap(w io.Writer, rt *multiworld.Runtime, center model.Coord, r int, adjusted bool) error {
	minX, minZ, maxX, maxZ := center.X-r, center.Z-r, center.X+r, center.Z+r
	rows := rt.Gen.Map(minX, minZ, maxX, maxZ)
	if adjusted {
		rows = rows[:0]
		for z := minZ; z <= maxZ; z++ {
			var b strings.Builder
			for x := minX; x <= maxX; x++ {
				d, ok := rt.Materialize(model.Coord{X: x, Z: z})
				if !ok {
					b.WriteRune(' ')
					continue
				}
				b.WriteRune(d.Cell.Kind.Glyph())
			}
			rows = append(rows, b.String())
		}
	}
	if _, err := fmt.Fprintf(w, "# world=%s seed=%d center=%s radius=%d\n", rt.Spec.ID, rt.Seed, center, r); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}
	if adjusted {
		st := rt.Queue.Stats()
		_, err := fmt.Fprintf(w, "# track_cells=%d pending=%d\n", st.TrackCells, st.Pending)
		return err
	}
	return nil
}
