package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Per-tenant JSON documents, one row per (owner, kind)
			CREATE TABLE tenant_documents (
				owner_id VARCHAR(255) NOT NULL,
				kind VARCHAR(50) NOT NULL CHECK (kind IN ('automations', 'followups', 'schedule_state')),
				body JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (owner_id, kind)
			);

			CREATE INDEX idx_tenant_documents_owner ON tenant_documents(owner_id);
			CREATE INDEX idx_tenant_documents_kind ON tenant_documents(kind);
			CREATE INDEX idx_tenant_documents_updated_at ON tenant_documents(updated_at);
		`,
	}
}
