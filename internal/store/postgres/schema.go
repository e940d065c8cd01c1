package postgres

// schema is applied on startup. All statements are idempotent so the binary
// can run it unconditionally.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          BIGSERIAL PRIMARY KEY,
	external_id TEXT      NOT NULL UNIQUE,
	name        TEXT      NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS accounts (
	id      BIGSERIAL PRIMARY KEY,
	user_id BIGINT    NOT NULL REFERENCES users (id),
	name    TEXT      NOT NULL,
	balance NUMERIC(14,2) NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS accounts_user_lower_name
	ON accounts (user_id, lower(name));

CREATE TABLE IF NOT EXISTS transactions (
	id          BIGSERIAL PRIMARY KEY,
	account_id  BIGINT    NOT NULL REFERENCES accounts (id),
	amount      NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
	type        TEXT      NOT NULL CHECK (type IN ('income', 'expense')),
	description TEXT      NOT NULL DEFAULT 'Miscellaneous',
	date        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS transactions_account_date
	ON transactions (account_id, date DESC, id DESC);
`
