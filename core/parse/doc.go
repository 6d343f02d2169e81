// Package parse turns free-form model output into usable values: it pulls the
// body out of fenced blocks and decodes JSON, repairing near-miss JSON with
// jsonrepair before giving up.
package parse
