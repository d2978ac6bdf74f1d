package sqlinline

// Provider keys are written by cmd/geminikey and read once at bootstrap.

const QSelectProviderKey = `--sql 3f0b6c1e-52a4-4d0e-9a57-0c7e2d9b41f6
select api_key
from provider_keys
where provider = $1::text and api_key <> ''
limit 1;
`

const QUpsertProviderKey = `--sql b81e4d2a-6c37-4f95-8e0d-27a9c5f3d160
insert into provider_keys (provider, api_key, source, created_at, updated_at)
values ($1::text, $2::text, coalesce(nullif($3::text, ''), 'unknown'), now(), now())
on conflict (provider) do update set
    api_key = excluded.api_key,
    source = excluded.source,
    updated_at = now()
returning updated_at;
`
