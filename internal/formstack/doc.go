// Package formstack manages stacked form tabs.
//
// Allowed here:
// - the tab store, parent/child completion routing, renderer lookup, panel state
//
// Not allowed here:
// - drawing (tui), form bodies (forms) or calls to the ERP
package formstack
