// Package agent runs model calls with a bounded retry loop.
//
// A [Step] formats a prompt template, sends it to an ai.Generator and
// post-processes the text (raw, fenced, or JSON decoded into a typed value).
// [Do] is the underlying generic loop and also wraps non-model calls such as
// web searches. Exhausting the [RetryPolicy] never aborts the caller: the
// [Result] carries the zero value and a [*CallError] instead.
package agent
