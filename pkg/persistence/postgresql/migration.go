package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'saved')),
				owner VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				saved_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_flows_status ON flows(status);
			CREATE INDEX idx_flows_owner ON flows(owner);
			CREATE INDEX idx_flows_created_at ON flows(created_at);

			CREATE TABLE flow_nodes (
				flow_id VARCHAR(255) NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				sort_order INT NOT NULL,
				node_type VARCHAR(255) NOT NULL,
				position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
				position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
				data JSONB NOT NULL DEFAULT '{}',
				PRIMARY KEY (flow_id, id)
			);

			CREATE INDEX idx_flow_nodes_flow_id ON flow_nodes(flow_id);
		`,
		2: `
			CREATE TABLE flow_edges (
				flow_id VARCHAR(255) NOT NULL,
				id VARCHAR(512) NOT NULL,
				sort_order INT NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				source_handle VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				target_handle VARCHAR(255) NOT NULL,
				PRIMARY KEY (flow_id, id),
				FOREIGN KEY (flow_id, source_node_id) REFERENCES flow_nodes(flow_id, id) ON DELETE CASCADE,
				FOREIGN KEY (flow_id, target_node_id) REFERENCES flow_nodes(flow_id, id) ON DELETE CASCADE
			);

			CREATE INDEX idx_flow_edges_flow_id ON flow_edges(flow_id);
			CREATE INDEX idx_flow_edges_source ON flow_edges(flow_id, source_node_id);
		`,
	}
}
