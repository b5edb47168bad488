// CLAUDE:SUMMARY Depth-first declaration-order traversal of a parsed MIME tree with depth ceiling.
package mimetree

import "strconv"

// Walk flattens a Part tree into depth-first declaration order. All
// children of multipart/alternative are enumerated; choosing the "best"
// representation is the extractor's call, not the walker's. The depth
// ceiling returns StructureTooDeep rather than recursing without bound;
// maxDepth <= 0 selects DefaultMaxDepth.
func Walk(root *Part, maxDepth int) ([]PartRef, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	var refs []PartRef
	if err := walk(root, 1, "1", maxDepth, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func walk(p *Part, depth int, path string, maxDepth int, refs *[]PartRef) error {
	if depth > maxDepth {
		return &StructureError{Kind: StructureTooDeep, Path: path, Depth: depth}
	}
	*refs = append(*refs, PartRef{Part: p, Index: len(*refs), Depth: depth, Path: path})
	for i, child := range p.Children {
		childPath := path + "." + strconv.Itoa(i+1)
		if err := walk(child, depth+1, childPath, maxDepth, refs); err != nil {
			return err
		}
	}
	return nil
}
