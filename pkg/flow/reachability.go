package flow

import "github.com/dukex/flowbuilder/pkg/models"

// ReachabilityReport describes whether every node can be reached from the
// flow's single start node. A start node is one without incoming edges.
type ReachabilityReport struct {
	Reachable          bool     `json:"reachable"`
	StartNodeIDs       []string `json:"start_node_ids"`
	UnreachableNodeIDs []string `json:"unreachable_node_ids"`
}

// CheckReachability walks the flow breadth-first from its unique start node.
// It is independent of ValidateFlow: a flow may pass the terminal check and
// still contain nodes nobody can reach. Flows with zero or several start nodes
// are not reachable; only the start nodes are reported for them. Nil entries
// are ignored.
func CheckReachability(nodes []*models.Node, edges []*models.Edge) *ReachabilityReport {
	report := &ReachabilityReport{
		StartNodeIDs:       make([]string, 0),
		UnreachableNodeIDs: make([]string, 0),
	}

	nodes = present(nodes)
	edges = present(edges)

	if len(nodes) <= 1 {
		report.Reachable = true

		for _, node := range nodes {
			report.StartNodeIDs = append(report.StartNodeIDs, node.ID)
		}

		return report
	}

	known := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		known[node.ID] = struct{}{}
	}

	adjacency := make(map[string][]string, len(nodes))
	hasIncoming := make(map[string]struct{}, len(nodes))

	for _, edge := range edges {
		_, srcOK := known[edge.Source]
		_, dstOK := known[edge.Target]

		if !srcOK || !dstOK {
			continue
		}

		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		hasIncoming[edge.Target] = struct{}{}
	}

	for _, node := range nodes {
		if _, ok := hasIncoming[node.ID]; !ok {
			report.StartNodeIDs = append(report.StartNodeIDs, node.ID)
		}
	}

	if len(report.StartNodeIDs) != 1 {
		return report
	}

	visited := map[string]struct{}{report.StartNodeIDs[0]: {}}
	queue := []string{report.StartNodeIDs[0]}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current] {
			if _, seen := visited[next]; seen {
				continue
			}

			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}

	for _, node := range nodes {
		if _, ok := visited[node.ID]; !ok {
			report.UnreachableNodeIDs = append(report.UnreachableNodeIDs, node.ID)
		}
	}

	report.Reachable = len(report.UnreachableNodeIDs) == 0

	return report
}
