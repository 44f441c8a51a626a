package postgres

// schemaDDL is applied at startup by EnsureSchema. Key records are never
// hard-deleted; window counters are pruned by the limiter's sweep.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS api_keys (
    id                TEXT PRIMARY KEY,
    secret            TEXT NOT NULL UNIQUE,
    name              TEXT NOT NULL,
    description       TEXT NOT NULL DEFAULT '',
    user_id           TEXT NOT NULL DEFAULT '',
    organization_id   TEXT NOT NULL DEFAULT '',
    enabled           BOOLEAN NOT NULL DEFAULT TRUE,
    revoked_at        TIMESTAMPTZ,
    window_ms         BIGINT NOT NULL,
    max_requests      INTEGER NOT NULL,
    allowed_endpoints TEXT[] NOT NULL DEFAULT '{}',
    permissions       TEXT[] NOT NULL DEFAULT '{}',
    usage_count       BIGINT NOT NULL DEFAULT 0,
    last_used_at      TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL,
    expires_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_api_keys_owner
    ON api_keys (user_id, organization_id);

CREATE TABLE IF NOT EXISTS window_counters (
    key        TEXT PRIMARY KEY,
    count      BIGINT NOT NULL,
    window_end TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_window_counters_window_end
    ON window_counters (window_end);
`
