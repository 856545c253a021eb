package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cubefield/internal/symbol"
)

// SymbolsOptions holds flags for the symbols command.
type SymbolsOptions struct {
	*RootOptions
	symbol.Extents
}

// SymbolEntry is one cell in canonical order. Centered holds the
// (row, col, layer) coordinates that paint takes for the cell.
type SymbolEntry struct {
	Order    int         `json:"order"`
	Symbol   string      `json:"symbol"`
	Cell     symbol.Cell `json:"cell"`
	Centered [3]float64  `json:"centered"`
}

// NewSymbolsCommand creates the symbols command.
func NewSymbolsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SymbolsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Print the canonical subcube order and symbols of a grid",
		Long: `Print every cell of a rows x cols x layers grid in canonical traversal
order (center, corners, then the remaining cells) with its symbol and the
centered row, col and layer coordinates that paint takes.

Example:
  cubefield symbols --rows 3 --cols 3 --layers 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbols(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Rows, "rows", 2, "grid rows")
	cmd.Flags().IntVar(&opts.Cols, "cols", 2, "grid columns")
	cmd.Flags().IntVar(&opts.Layers, "layers", 2, "grid layers")

	return cmd
}

func runSymbols(opts *SymbolsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	a, err := symbol.NewAssigner(opts.Extents)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeArgument, "invalid grid", err)
	}

	entries := make([]SymbolEntry, a.Len())
	for i, cell := range a.Order() {
		entries[i] = SymbolEntry{
			Order:  i,
			Symbol: symbol.Symbol(i),
			Cell:   cell,
			Centered: [3]float64{
				symbol.IndexToCentered(cell.Row, opts.Rows),
				symbol.IndexToCentered(cell.Col, opts.Cols),
				symbol.IndexToCentered(cell.Layer, opts.Layers),
			},
		}
	}

	return formatter.Success(entries, func(w io.Writer) {
		fmt.Fprintf(w, "grid %s: %d cell(s)\n", opts.Extents, len(entries))
		for _, e := range entries {
			fmt.Fprintf(w, "%4d  %-3s  %s  (%g, %g, %g)\n", e.Order, e.Symbol, e.Cell,
				e.Centered[0], e.Centered[1], e.Centered[2])
		}
	})
}
