// Package symbol assigns dense, stable identifiers to the cells of a subcube grid.
//
// Cells are listed in a canonical traversal order:
//  1. The center cell (floor division on every axis).
//  2. The eight axis-extreme corners, skipping cells already listed.
//  3. Every remaining cell by increasing layer, then row, then column.
//
// Position i in that order maps to Symbol(i), a base-26 letter string of at
// least two characters. For fixed extents the mapping is a bijection; changing
// the extents invalidates every previously assigned symbol.
//
// De-duplication rule: a cell is emitted the first time it is reached and
// skipped afterwards. With an extent of 1 on any axis the corners collapse onto
// each other (and possibly onto the center), so fewer than nine cells come out
// of steps 1 and 2.
package symbol
