package nested

// OptimizeSolid runs the default post-build optimization pass: any subtree
// whose child vector reached exactly 8 entries, all of which are terminal,
// non-empty, and share one RGBA, collapses into a childless solid leaf.
//
// The `== 8` requirement is inherited verbatim from the original builder: a
// fully-solid region whose insertion order never grew the vector past a
// lower child index (because the highest-indexed octant happened to be
// empty) will not collapse even though every *existing* child agrees. This
// is a known latent limitation, not a design choice made here, so it is
// preserved rather than fixed.
func (t *Tree) OptimizeSolid() {
	t.optimizeSolid(t.Root())
}

func (t *Tree) optimizeSolid(idx int32) {
	el := t.At(idx)
	if el.ChildSlots == 0 {
		return
	}
	if el.IsEmpty {
		t.clearChildren(idx)
		return
	}

	allSolid := el.ChildSlots >= 8
	rgba := el.RGBA
	slots := el.ChildSlots
	children := el.Children

	for i := uint8(0); i < slots; i++ {
		c := children[i]
		t.optimizeSolid(c)

		child := t.At(c)
		if child.IsEmpty || child.ChildSlots > 0 {
			allSolid = false
		}
		if child.RGBA != rgba {
			allSolid = false
		}
	}

	if allSolid {
		t.clearChildren(idx)
	}
}

func (t *Tree) clearChildren(idx int32) {
	el := t.At(idx)
	el.ChildSlots = 0
	for i := range el.Children {
		el.Children[i] = noChild
	}
}

// OptimizeEmpty removes trailing empty children and marks a node empty if
// every child is empty. It is implemented but, per the original builder,
// not run by the default pipeline (see OptimizeSolid's doc and the nested
// merge/build default path) — call it explicitly to opt in.
func (t *Tree) OptimizeEmpty() {
	t.optimizeEmpty(t.Root())
}

func (t *Tree) optimizeEmpty(idx int32) {
	el := t.At(idx)
	if el.ChildSlots == 0 {
		return
	}
	if el.IsEmpty {
		t.clearChildren(idx)
		return
	}

	allEmpty := true
	firstSolidFound := false
	slots := el.ChildSlots
	children := el.Children

	for i := int(slots) - 1; i >= 0; i-- {
		t.optimizeEmpty(children[i])
		child := t.At(children[i])
		if child.IsEmpty {
			if !firstSolidFound {
				el := t.At(idx)
				el.ChildSlots--
			}
		} else {
			firstSolidFound = true
			allEmpty = false
		}
	}

	if allEmpty {
		el := t.At(idx)
		el.IsEmpty = true
		t.clearChildren(idx)
	}
}
