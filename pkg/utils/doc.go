// Package utils holds small helpers shared by the service packages.
//
//	utils.MaskEmail("john@example.com") // "j***n@example.com"
package utils
