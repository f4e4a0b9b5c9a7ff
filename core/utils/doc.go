// Package utils provides common utility functions for the farm agent.
// It includes helpers for converting loosely typed database values, for the
// tick-based timestamps used in checkpoint files, and for making attribute
// values safe for single-line event output.
package utils
