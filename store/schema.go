package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS locations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	location_type TEXT NOT NULL DEFAULT 'storage',
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	client TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	location_id INTEGER,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS equipment_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL,
	default_length_ft INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS equipment (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	display_id TEXT NOT NULL UNIQUE,
	type_id INTEGER NOT NULL REFERENCES equipment_types(id),
	status TEXT NOT NULL DEFAULT 'available',
	location_id INTEGER NOT NULL REFERENCES locations(id),
	location_type TEXT NOT NULL DEFAULT 'storage',
	job_id INTEGER REFERENCES jobs(id),
	serial_number TEXT NOT NULL DEFAULT '',
	serialized INTEGER NOT NULL DEFAULT 1,
	quantity REAL NOT NULL DEFAULT 1,
	notes TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_equipment_job ON equipment(job_id);
CREATE INDEX IF NOT EXISTS idx_equipment_location ON equipment(location_id);
CREATE INDEX IF NOT EXISTS idx_equipment_status ON equipment(status);

CREATE TABLE IF NOT EXISTS equipment_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	equipment_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	from_status TEXT NOT NULL DEFAULT '',
	to_status TEXT NOT NULL DEFAULT '',
	from_job_id INTEGER,
	to_job_id INTEGER,
	from_location_id INTEGER,
	to_location_id INTEGER,
	actor TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_history_equipment ON equipment_history(equipment_id);

CREATE TABLE IF NOT EXISTS diagrams (
	job_id INTEGER PRIMARY KEY,
	snapshot TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS conflicts (
	id TEXT PRIMARY KEY,
	equipment_id INTEGER NOT NULL,
	display_id TEXT NOT NULL,
	current_job_id INTEGER NOT NULL,
	requested_job_id INTEGER NOT NULL,
	detected_at TEXT NOT NULL DEFAULT (datetime('now')),
	resolved_at TEXT,
	resolution TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS outbox (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic TEXT NOT NULL,
	kind TEXT NOT NULL,
	job_key TEXT NOT NULL DEFAULT '',
	payload BLOB NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	sent_at TEXT
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS locations (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	location_type TEXT NOT NULL DEFAULT 'storage',
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS jobs (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	client TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	location_id BIGINT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS equipment_types (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL,
	default_length_ft INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS equipment (
	id BIGSERIAL PRIMARY KEY,
	display_id TEXT NOT NULL UNIQUE,
	type_id BIGINT NOT NULL REFERENCES equipment_types(id),
	status TEXT NOT NULL DEFAULT 'available',
	location_id BIGINT NOT NULL REFERENCES locations(id),
	location_type TEXT NOT NULL DEFAULT 'storage',
	job_id BIGINT REFERENCES jobs(id),
	serial_number TEXT NOT NULL DEFAULT '',
	serialized BOOLEAN NOT NULL DEFAULT TRUE,
	quantity DOUBLE PRECISION NOT NULL DEFAULT 1,
	notes TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_equipment_job ON equipment(job_id);
CREATE INDEX IF NOT EXISTS idx_equipment_location ON equipment(location_id);
CREATE INDEX IF NOT EXISTS idx_equipment_status ON equipment(status);

CREATE TABLE IF NOT EXISTS equipment_history (
	id BIGSERIAL PRIMARY KEY,
	equipment_id BIGINT NOT NULL,
	action TEXT NOT NULL,
	from_status TEXT NOT NULL DEFAULT '',
	to_status TEXT NOT NULL DEFAULT '',
	from_job_id BIGINT,
	to_job_id BIGINT,
	from_location_id BIGINT,
	to_location_id BIGINT,
	actor TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_history_equipment ON equipment_history(equipment_id);

CREATE TABLE IF NOT EXISTS diagrams (
	job_id BIGINT PRIMARY KEY,
	snapshot TEXT NOT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS conflicts (
	id TEXT PRIMARY KEY,
	equipment_id BIGINT NOT NULL,
	display_id TEXT NOT NULL,
	current_job_id BIGINT NOT NULL,
	requested_job_id BIGINT NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolved_at TIMESTAMPTZ,
	resolution TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS outbox (
	id BIGSERIAL PRIMARY KEY,
	topic TEXT NOT NULL,
	kind TEXT NOT NULL,
	job_key TEXT NOT NULL DEFAULT '',
	payload BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	sent_at TIMESTAMPTZ
);
`
