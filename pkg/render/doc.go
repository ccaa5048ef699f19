/*
Package render decides how a script context reacts to a host state change and
carries the decision out against a render delegate.

A change to any topology field (by default only the sample rate) requires a full
render: the external graph factory is invoked and the whole graph is submitted to
the delegate. Any other change is an incremental update: the retained state is
diffed against the new one and only the node properties bound to changed fields
are patched.

	eng := render.New(factory, delegate, render.WithLogger(logger))
	outcome, err := eng.Apply(ctx, state)
*/
package render
