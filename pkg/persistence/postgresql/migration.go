package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create playbooks table
			CREATE TABLE playbooks (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_type VARCHAR(50) NOT NULL CHECK (trigger_type IN ('shopify_event', 'email_intent', 'scheduled')),
				trigger_config JSONB NOT NULL DEFAULT '{}',
				conditions JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				confidence_threshold DOUBLE PRECISION NOT NULL CHECK (confidence_threshold >= 0 AND confidence_threshold <= 1),
				requires_approval BOOLEAN NOT NULL DEFAULT false,
				enabled BOOLEAN NOT NULL DEFAULT true,
				is_default BOOLEAN NOT NULL DEFAULT false,
				execution_count BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_playbooks_user_enabled ON playbooks(user_id, enabled);
			CREATE INDEX idx_playbooks_trigger_type ON playbooks(trigger_type, enabled);
			CREATE INDEX idx_playbooks_deleted_at ON playbooks(deleted_at);
		`,
		2: `
			-- Append-only execution log. Rows outlive soft-deleted playbooks.
			CREATE TABLE playbook_executions (
				id UUID PRIMARY KEY,
				playbook_id UUID NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('executed', 'pending', 'skipped', 'failed')),
				confidence DOUBLE PRECISION,
				reason TEXT,
				trigger_data JSONB NOT NULL DEFAULT '{}',
				result JSONB,
				error TEXT,
				approved_execution_id UUID UNIQUE REFERENCES playbook_executions(id),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_playbook_executions_playbook ON playbook_executions(playbook_id, created_at DESC);
			CREATE INDEX idx_playbook_executions_status ON playbook_executions(status);
		`,
	}
}
