package ensemble

import "golang.org/x/sync/errgroup"

// fanOut calls fn for every index in [0, n). With limit <= 1 the calls run
// one after another; otherwise up to limit run at once. fn writes into its
// own slot, so output order never depends on completion order.
func fanOut(n, limit int, fn func(i int)) {
	if limit <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
