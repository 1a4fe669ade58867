// Package spatial provides a uniform grid for broad-phase neighbor queries
// on the arena floor.
//
// The grid stores integer indices, not pointers, so a rebuild every tick
// only resets slice lengths.
package spatial

import (
	"math"
)

// Grid buckets entity indices into square cells over a region centered on
// the origin of the XZ plane. Positions outside the region are clamped into
// the border cells, so a query followed by a precise distance check never
// misses an entity.
//
// Cells are stored in row-major order (cells[row*cols+col]), rows along Z.
type Grid struct {
	cellSize    float64
	invCellSize float64 // 1/cellSize for faster division
	halfExtent  float64
	cols        int
	cells       [][]uint32
	scratch     []uint32 // reusable buffer for query results
}

// NewGrid creates a grid covering [-halfExtent, halfExtent] on both axes.
// cellSize should be close to the largest query radius.
// maxEntities is used to preallocate cell capacity.
func NewGrid(halfExtent, cellSize float64, maxEntities int) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(2 * halfExtent / cellSize))
	if cols < 1 {
		cols = 1
	}

	cells := make([][]uint32, cols*cols)
	perCell := maxEntities / len(cells)
	if perCell < 4 {
		perCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		halfExtent:  halfExtent,
		cols:        cols,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Clear resets all cells without deallocating underlying memory.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds entity id at (x, z).
func (g *Grid) Insert(id uint32, x, z float64) {
	idx := g.cell(z)*g.cols + g.cell(x)
	g.cells[idx] = append(g.cells[idx], id)
}

// cell maps one coordinate to a clamped column or row.
func (g *Grid) cell(v float64) int {
	c := int(math.Floor((v + g.halfExtent) * g.invCellSize))
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

// QueryRadius returns every entity that may lie within radius of (x, z).
//
// IMPORTANT: The returned slice is reused on subsequent calls.
// Candidates can be outside the radius; the caller does the narrow phase.
func (g *Grid) QueryRadius(x, z, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, maxCol := g.cell(x-radius), g.cell(x+radius)
	minRow, maxRow := g.cell(z-radius), g.cell(z+radius)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}

// Len returns the number of inserted entities.
func (g *Grid) Len() int {
	n := 0
	for _, c := range g.cells {
		n += len(c)
	}
	return n
}

// Dimensions returns the grid dimensions.
func (g *Grid) Dimensions() (cols int, cellSize float64) {
	return g.cols, g.cellSize
}
