// Package expr implements the workflow expression subsystem: {{variable}}
// templating with path access and bounded nested dereference, and the
// condition mini-language used by branch and loop nodes.
package expr
