package ast

// Walk calls fn for n and then for every argument beneath it, depth first.
// If fn returns an error the traversal stops and the error is returned.
func Walk(n Node, fn func(Node) error) error {
	if n == nil {
		return nil
	}
	if err := fn(n); err != nil {
		return err
	}
	if call, ok := n.(*FunctionCall); ok {
		for _, arg := range call.Args {
			if err := Walk(arg, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Functions returns the names of every function called in n, in the
// order they are first encountered.
func Functions(n Node) []string {
	var names []string
	seen := make(map[string]bool)
	_ = Walk(n, func(node Node) error {
		if call, ok := node.(*FunctionCall); ok && !seen[call.Name] {
			seen[call.Name] = true
			names = append(names, call.Name)
		}
		return nil
	})
	return names
}
