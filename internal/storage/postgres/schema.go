package postgres

// schemaStatements create the events and contracts tables and their indexes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		contract_id TEXT NOT NULL,
		tx_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		event_data JSONB NOT NULL DEFAULT '{}'::jsonb,
		block_height BIGINT NOT NULL,
		block_hash TEXT,
		nonce BIGINT,
		fees TEXT,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS events_tx_id_key ON events (tx_id)`,
	`CREATE INDEX IF NOT EXISTS events_block_height_idx ON events (block_height DESC)`,
	`CREATE INDEX IF NOT EXISTS events_contract_id_idx ON events (contract_id)`,
	`CREATE INDEX IF NOT EXISTS events_timestamp_idx ON events (timestamp)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		address TEXT NOT NULL,
		contract_name TEXT NOT NULL,
		last_processed_block BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (address, contract_name)
	)`,
	`CREATE INDEX IF NOT EXISTS contracts_last_processed_block_idx ON contracts (last_processed_block DESC)`,
}
