package compute

// feedbackLoops returns the strongly connected components of the dependency
// graph that contain more than one variable. Loops are legal because every
// read targets the previous generation; they are reported for diagnostics.
// Self edges are implicit and ignored.
func feedbackLoops(vars []*Variable) [][]string {
	graph := make(map[string][]string, len(vars))
	order := make([]string, 0, len(vars))
	for _, v := range vars {
		order = append(order, v.name)
		for _, d := range v.resolved {
			if d != v {
				graph[v.name] = append(graph[v.name], d.name)
			}
		}
	}

	var loops [][]string
	for _, scc := range tarjanSCC(order, graph) {
		if len(scc) > 1 {
			loops = append(loops, scc)
		}
	}
	return loops
}

// tarjanSCC finds strongly connected components, visiting roots in the
// given order so results are deterministic.
func tarjanSCC(nodes []string, graph map[string][]string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}
