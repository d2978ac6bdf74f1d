package sqlinline

const QCreateProjectsTable = `--sql ab1fdd79-ecf8-4df3-87bf-7b7a15bfa4dc
create table if not exists projects (
  id uuid primary key,
  user_id text not null,
  prompt text not null,
  platforms jsonb not null default '[]'::jsonb,
  status text not null check (status in ('generating', 'complete', 'partial', 'failed')),
  assets jsonb not null default '[]'::jsonb,
  errors jsonb not null default '[]'::jsonb,
  created_at timestamptz not null default now(),
  completed_at timestamptz
);
`

const QCreateProjectsUserIndex = `--sql c4301746-794a-4273-a6ec-4e41a3b17ada
create index if not exists projects_user_created_idx on projects(user_id, created_at desc);
`

const QCreateProviderKeysTable = `--sql 5e92a7d4-1b60-4c8f-a3d5-94f07b2e6c18
create table if not exists provider_keys (
  provider text primary key,
  api_key text not null,
  source text not null default 'unknown',
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
`

// PostgresSchema lists the statements that bootstrap an empty database, in order.
var PostgresSchema = []string{
	QCreateProjectsTable,
	QCreateProjectsUserIndex,
	QCreateProviderKeysTable,
}

const QSQLiteCreateProjectsTable = `--sql 78564c6b-313c-4d9c-95ab-395ba84bbd36
create table if not exists projects (
  id text primary key,
  user_id text not null,
  prompt text not null,
  platforms text not null default '[]',
  status text not null,
  assets text not null default '[]',
  errors text not null default '[]',
  created_at text not null,
  completed_at text
);
`

// SQLiteSchema is the local-development equivalent of PostgresSchema.
var SQLiteSchema = []string{
	QSQLiteCreateProjectsTable,
}
