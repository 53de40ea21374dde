package repository

import "context"

// schema is the CA configuration schema. Dependent tables reference cas(id)
// with ON DELETE CASCADE so DeleteCa removes every alias, association and
// SCEP binding in one statement, matching the registry's cascade semantics.
const schema = `
CREATE TABLE IF NOT EXISTS cas (
	id                     INTEGER PRIMARY KEY,
	name                   TEXT NOT NULL UNIQUE,
	status                 TEXT NOT NULL,
	sn_len                 INTEGER NOT NULL,
	cacert_uris            TEXT[] NOT NULL DEFAULT '{}',
	crl_uris               TEXT[] NOT NULL DEFAULT '{}',
	deltacrl_uris          TEXT[] NOT NULL DEFAULT '{}',
	ocsp_uris              TEXT[] NOT NULL DEFAULT '{}',
	max_validity_seconds   BIGINT NOT NULL,
	signer_type            TEXT NOT NULL,
	signer_conf            TEXT NOT NULL DEFAULT '',
	cert_pem               TEXT NOT NULL DEFAULT '',
	crl_signer             TEXT NOT NULL DEFAULT '',
	responder              TEXT NOT NULL DEFAULT '',
	cmp_control            TEXT NOT NULL DEFAULT '',
	permissions            BIGINT NOT NULL,
	duplicate_key          INTEGER NOT NULL,
	duplicate_subject      INTEGER NOT NULL,
	save_request           BOOLEAN NOT NULL,
	validity_mode          TEXT NOT NULL,
	expiration_period      INTEGER NOT NULL,
	num_crls               INTEGER NOT NULL,
	keep_expired_cert_days INTEGER NOT NULL,
	next_crl_no            BIGINT NOT NULL,
	extra_control          TEXT NOT NULL DEFAULT '',
	revoked                BOOLEAN NOT NULL DEFAULT FALSE,
	rev_reason             INTEGER,
	rev_time               TIMESTAMPTZ,
	rev_inv_time           TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS ca_aliases (
	name  TEXT PRIMARY KEY,
	ca_id INTEGER NOT NULL REFERENCES cas(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS signers (
	name     TEXT PRIMARY KEY,
	type     TEXT NOT NULL,
	conf     TEXT NOT NULL,
	cert_pem TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS crl_signers (
	name        TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	conf        TEXT NOT NULL,
	cert_pem    TEXT NOT NULL DEFAULT '',
	crl_control TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS responders (
	name     TEXT PRIMARY KEY,
	type     TEXT NOT NULL,
	conf     TEXT NOT NULL,
	cert_pem TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cmp_controls (
	name TEXT PRIMARY KEY,
	conf TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS requestors (
	id       INTEGER NOT NULL UNIQUE,
	name     TEXT PRIMARY KEY,
	cert_pem TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS users (
	id            INTEGER NOT NULL UNIQUE,
	name          TEXT PRIMARY KEY,
	active        BOOLEAN NOT NULL,
	password_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS profiles (
	id   INTEGER NOT NULL UNIQUE,
	name TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	conf TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS publishers (
	id   INTEGER NOT NULL UNIQUE,
	name TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	conf TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sceps (
	ca_id     INTEGER PRIMARY KEY REFERENCES cas(id) ON DELETE CASCADE,
	active    BOOLEAN NOT NULL,
	profiles  TEXT[] NOT NULL DEFAULT '{}',
	responder TEXT NOT NULL DEFAULT '',
	control   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ca_has_requestors (
	ca_id       INTEGER NOT NULL REFERENCES cas(id) ON DELETE CASCADE,
	requestor   TEXT NOT NULL REFERENCES requestors(name) ON DELETE CASCADE,
	ra          BOOLEAN NOT NULL,
	permissions BIGINT NOT NULL,
	profiles    TEXT[] NOT NULL DEFAULT '{}',
	PRIMARY KEY (ca_id, requestor)
);

CREATE TABLE IF NOT EXISTS ca_has_users (
	ca_id       INTEGER NOT NULL REFERENCES cas(id) ON DELETE CASCADE,
	username    TEXT NOT NULL REFERENCES users(name) ON DELETE CASCADE,
	permissions BIGINT NOT NULL,
	profiles    TEXT[] NOT NULL DEFAULT '{}',
	PRIMARY KEY (ca_id, username)
);

CREATE TABLE IF NOT EXISTS ca_has_profiles (
	ca_id      INTEGER NOT NULL REFERENCES cas(id) ON DELETE CASCADE,
	profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	PRIMARY KEY (ca_id, profile_id)
);

CREATE TABLE IF NOT EXISTS ca_has_publishers (
	ca_id        INTEGER NOT NULL REFERENCES cas(id) ON DELETE CASCADE,
	publisher_id INTEGER NOT NULL REFERENCES publishers(id) ON DELETE CASCADE,
	PRIMARY KEY (ca_id, publisher_id)
);
`

// Migrate creates the configuration tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return wrap("migrate schema", err)
}
