// Package variability computes behavioral variability metrics over an event
// log: the number of distinct variants, the mean pairwise trace similarity and
// the dispersion of trace lengths.
//
// All functions are pure. They never mutate the log and never retain
// references to it after returning.
package variability
