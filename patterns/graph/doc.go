// Package graph executes state machines whose nodes update a shared, typed
// state.
//
// A [Graph] is generic over the state S and the update U that nodes return.
// Updates are folded into the state by a reducer table keyed by field name,
// so each field decides whether it is appended, overwritten, summed or set
// once. Control flow follows plain edges or routing functions; a routing
// function either names the next node ([Goto]) or fans out to parallel
// branches ([FanOut]), each branch receiving its own input state.
//
// Fan-out branches run concurrently, bounded by [WithMaxConcurrency]. The
// join waits for every branch and merges their updates in branch order, so
// the merged state never depends on which branch finished first.
//
// Graphs may loop. The executor does not cap iterations: termination is the
// job of the routing functions.
//
// Example:
//
//	g, err := graph.NewBuilder[State, Update]("research").
//	    AddNode("generate_query", generateQuery).
//	    AddNode("web_research", webResearch).
//	    AddEdge(graph.Start, "generate_query").
//	    AddConditionalEdges("generate_query", fanOutQueries, "web_research").
//	    AddEdge("web_research", graph.End).
//	    AddReducer("search_query", appendQueries).
//	    Build()
//
//	final, err := g.Run(ctx, initial, graph.Start)
package graph
