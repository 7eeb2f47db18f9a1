package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				project_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_node_id VARCHAR(255) NOT NULL,
				output_node_id VARCHAR(255) NOT NULL DEFAULT '',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				variables JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_project_id ON workflows(project_id);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				project_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				continue_execution_at TIMESTAMP WITH TIME ZONE,
				output JSONB,
				trigger_data JSONB,
				nodes JSONB NOT NULL DEFAULT '[]',
				error_message TEXT NOT NULL DEFAULT '',
				version BIGINT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_due ON executions(continue_execution_at) WHERE status = 'SCHEDULED';
		`,
	}
}
