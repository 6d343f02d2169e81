// Package research wires the iterative web research workflow on top of the
// graph executor.
//
// A run plans (optionally), writes search queries, searches them in parallel,
// reflects on whether the gathered material answers the question and loops
// with follow-up queries until it does or the loop budget is spent. The final
// node writes a report whose citations are expanded from short ids back to
// the original URLs.
//
//	generate_plan -> evaluate_plan -> {awaiting_plan_confirmation, replan, generate_query}
//	generate_query -> web_research* -> reflection -> {web_research*, finalize_answer}
//
// External calls go through the agent harness: an exhausted call never fails
// the run, it leaves an empty result in the state and the workflow carries
// on with less material.
package research
