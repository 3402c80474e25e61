package sqlinline

const QEnsureHistorySequence = `--sql b28418d2-a6dd-40c7-9696-62da252d0219
create sequence if not exists playground_history_seq;
`

const QEnsureHistoryTable = `--sql 77daa8b6-3916-4c81-9ee0-30b2a12cb4f8
create table if not exists playground_history (
  id         text primary key,
  seq        bigint not null default nextval('playground_history_seq'),
  payload    jsonb not null,
  created_at timestamptz not null default now()
);
`

// QLockHistory serializes pushes for the rest of the transaction so the trim
// sees every committed insert.
const QLockHistory = `--sql 3f6c1a9e-5b2d-4e87-9c14-a7d0e2b8f651
select pg_advisory_xact_lock(hashtext('playground_history'));
`

const QUpsertHistoryItem = `--sql e859eb3b-db2e-44bb-a14e-71ee4b7c22e9
insert into playground_history(id, payload)
values ($1::text, $2::jsonb)
on conflict (id) do update
set payload = excluded.payload,
    seq = nextval('playground_history_seq'),
    created_at = now();
`

const QTrimHistory = `--sql bca4465f-7738-4982-8307-79f05196cb4c
delete from playground_history
where id in (
  select id
  from playground_history
  order by seq desc
  offset $1::int
);
`

const QListHistory = `--sql e805f523-30cc-4825-ac49-b4756e82d694
select payload
from playground_history
order by seq desc
limit $1::int;
`

const QDeleteHistoryItem = `--sql 3692c55e-f7ef-440a-af69-26b9094f118e
delete from playground_history
where id = $1::text;
`

const QClearHistory = `--sql 2a0239ad-b4b2-4852-93da-4962023af697
delete from playground_history;
`
