package views

// Element groups understood by the diagram canvas
const (
	GroupNodes = "nodes"
	GroupEdges = "edges"
)

// ElementData is the payload of a diagram element.
// Node elements carry name and type, edge elements carry source and target.
type ElementData struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
}

// Element is one entry of the diagram element list
type Element struct {
	Group string      `json:"group"`
	Data  ElementData `json:"data"`
}

// Diagram turns the wrapped store lists into the canvas element list:
// all nodes first, then all edges, each in store order.
func Diagram(nodes []NodeElement, edges []EdgeElement) []Element {
	elements := make([]Element, 0, len(nodes)+len(edges))
	for _, n := range nodes {
		elements = append(elements, Element{
			Group: GroupNodes,
			Data: ElementData{
				ID:   n.Data.ID,
				Name: n.Data.Name,
				Type: string(n.Data.Type),
			},
		})
	}
	for _, e := range edges {
		elements = append(elements, Element{
			Group: GroupEdges,
			Data: ElementData{
				ID:     e.Data.ID,
				Source: e.Data.Source,
				Target: e.Data.Target,
			},
		})
	}
	return elements
}
