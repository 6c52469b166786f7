// Package schedule abstracts delayed execution so pollers and print triggers can run against a virtual clock in tests.
package schedule
