/*
Package dsl builds signal graphs for graph factories with a fluent API instead of
nested domain.GraphNode literals.

	osc := dsl.Node("cycle").Key(props.Key+":osc").Prop("frequency", 440)
	amp := dsl.Node("mul").Key(props.Key+":amp").Prop("value", 0.5).Child(osc)

	b := dsl.New()
	b.Root(dsl.Node("add").Child(amp, dsl.Input(in)))
	b.Bind("frequency", osc, "frequency")
	graph, err := b.Build()

Build checks that every bound node is keyed and reachable from a root, and that
one key is never used for two different kinds.
*/
package dsl
