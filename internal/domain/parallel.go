package domain

import "golang.org/x/sync/errgroup"

// forEachRow calls fn for every row index, splitting the rows into at most
// workers contiguous bands. fn must only write to its own row of the output.
func forEachRow(rows, workers int, fn func(r int)) {
	if workers <= 1 || rows < 2 {
		for r := 0; r < rows; r++ {
			fn(r)
		}
		return
	}
	if workers > rows {
		workers = rows
	}

	band := (rows + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < rows; start += band {
		end := min(start+band, rows)
		g.Go(func() error {
			for r := start; r < end; r++ {
				fn(r)
			}
			return nil
		})
	}
	_ = g.Wait() // bands never fail
}
