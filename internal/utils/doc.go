// Package utils holds small helpers shared by the provider adapters: JSON over
// HTTP, pointer construction and string rendering for logs and prompts.
package utils
