package pipeline

// Node is one note placed in the galaxy.
type Node struct {
	ID           int     `json:"id" yaml:"id"`
	Label        string  `json:"label" yaml:"label"`
	X            float64 `json:"x" yaml:"x"`
	Y            float64 `json:"y" yaml:"y"`
	Z            float64 `json:"z" yaml:"z"`
	Category     int     `json:"category" yaml:"category"`
	ClusterLabel string  `json:"cluster_label" yaml:"cluster_label"`
}

// Galaxy is the result of processing a note collection. Node ids are
// positions in the input and are only meaningful for this result.
type Galaxy struct {
	Nodes        []Node         `json:"nodes" yaml:"nodes"`
	ClusterNames map[int]string `json:"cluster_names" yaml:"cluster_names"`
}

// EmptyGalaxy returns the result for an empty note collection.
func EmptyGalaxy() *Galaxy {
	return &Galaxy{
		Nodes:        []Node{},
		ClusterNames: map[int]string{},
	}
}
