package sqlinline

const QInsertProject = `--sql d704b683-a05b-45b8-be80-fc919e161b19
insert into projects(id, user_id, prompt, platforms, status, assets, errors, created_at, completed_at)
values ($1::uuid, $2::text, $3::text, $4::jsonb, $5::text, $6::jsonb, $7::jsonb, $8::timestamptz, $9::timestamptz)
on conflict (id) do nothing;
`

// QFinalizeProject only matches projects still generating, so a terminal
// status is written at most once.
const QFinalizeProject = `--sql 030c794a-17e5-4242-8acf-b2b97f46abf6
update projects
set status = $2::text,
    assets = $3::jsonb,
    errors = $4::jsonb,
    completed_at = $5::timestamptz
where id = $1::uuid
  and status = 'generating';
`

const QSelectProjectByID = `--sql 827f84c3-bf4a-426e-a3c5-a165010ae196
select id::text, user_id, prompt, platforms, status, assets, errors, created_at, completed_at
from projects
where id = $1::uuid
limit 1;
`

const QProjectStatus = `--sql 862e741e-8f9b-4eec-ad0d-e8707d169095
select status
from projects
where id = $1::uuid
limit 1;
`

const QSQLiteInsertProject = `--sql 0657223b-b6a4-4d48-bd3d-1e8858a67e1d
insert into projects(id, user_id, prompt, platforms, status, assets, errors, created_at, completed_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict(id) do nothing;
`

const QSQLiteFinalizeProject = `--sql 37226c2c-a0fa-4ced-86c4-1434dcd2e9c5
update projects
set status = ?, assets = ?, errors = ?, completed_at = ?
where id = ? and status = 'generating';
`

const QSQLiteSelectProjectByID = `--sql a9b335ba-6c53-4532-a299-cfb804567ae3
select id, user_id, prompt, platforms, status, assets, errors, created_at, completed_at
from projects
where id = ?
limit 1;
`

const QSQLiteProjectStatus = `--sql 1b9dc444-5fda-4df4-b8f4-37c20d1015c1
select status from projects where id = ? limit 1;
`
