// Package graph defines the editable instrument graph for patchbay.
// An Instrument is plain data: an ordered list of node instances plus the
// patches that wire node outputs to node inputs. It carries no audio state;
// package compile turns it into a runnable schedule.
package graph
