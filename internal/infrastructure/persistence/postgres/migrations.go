package postgres

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_profiles", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_profile_dependents", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_catalog", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_progress", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

const migration001Up = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE profiles (
    id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    external_id       TEXT NOT NULL,
    email             TEXT NOT NULL,
    display_name      TEXT NOT NULL,
    avatar_url        TEXT NOT NULL DEFAULT '',
    rank              TEXT NOT NULL DEFAULT 'Script Kiddie',
    xp                INTEGER NOT NULL DEFAULT 0,
    subscription_tier TEXT NOT NULL DEFAULT 'Free',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT profiles_email_unique UNIQUE (email),
    CONSTRAINT profiles_external_id_unique UNIQUE (external_id)
);

CREATE INDEX idx_profiles_external_id ON profiles (external_id);
`

const migration001Down = `
DROP TABLE IF EXISTS profiles;
`

const migration002Up = `
CREATE TABLE skill_scores (
    profile_id UUID PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
    web        INTEGER NOT NULL DEFAULT 0,
    crypto     INTEGER NOT NULL DEFAULT 0,
    forensics  INTEGER NOT NULL DEFAULT 0,
    reversing  INTEGER NOT NULL DEFAULT 0,
    pwn        INTEGER NOT NULL DEFAULT 0,
    network    INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE subscriptions (
    id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    profile_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    plan       TEXT NOT NULL DEFAULT 'Free',
    status     TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT subscriptions_profile_unique UNIQUE (profile_id)
);

CREATE TABLE activity_logs (
    id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    profile_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    type       TEXT NOT NULL,
    metadata   JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_activity_logs_profile ON activity_logs (profile_id, created_at DESC);
CREATE INDEX idx_activity_logs_type ON activity_logs (profile_id, type);
`

const migration002Down = `
DROP TABLE IF EXISTS activity_logs;
DROP TABLE IF EXISTS subscriptions;
DROP TABLE IF EXISTS skill_scores;
`

const migration003Up = `
CREATE TABLE units (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    type        TEXT NOT NULL CHECK (type IN ('course', 'track')),
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    difficulty  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE unit_modules (
    id       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    unit_id  UUID NOT NULL REFERENCES units(id) ON DELETE CASCADE,
    title    TEXT NOT NULL,
    position INTEGER NOT NULL,

    CONSTRAINT unit_modules_position_unique UNIQUE (unit_id, position)
);

CREATE INDEX idx_unit_modules_unit ON unit_modules (unit_id);
`

const migration003Down = `
DROP TABLE IF EXISTS unit_modules;
DROP TABLE IF EXISTS units;
`

const migration004Up = `
CREATE TABLE enrollments (
    id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    profile_id          UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    unit_id             UUID NOT NULL REFERENCES units(id) ON DELETE CASCADE,
    progress_percentage INTEGER NOT NULL DEFAULT 0
        CHECK (progress_percentage BETWEEN 0 AND 100),
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT enrollments_profile_unit_unique UNIQUE (profile_id, unit_id)
);

CREATE INDEX idx_enrollments_profile ON enrollments (profile_id);

CREATE TABLE module_progress (
    profile_id   UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    unit_id      UUID NOT NULL REFERENCES units(id) ON DELETE CASCADE,
    module_id    UUID NOT NULL REFERENCES unit_modules(id) ON DELETE CASCADE,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMPTZ,

    PRIMARY KEY (profile_id, unit_id, module_id)
);
`

const migration004Down = `
DROP TABLE IF EXISTS module_progress;
DROP TABLE IF EXISTS enrollments;
`
