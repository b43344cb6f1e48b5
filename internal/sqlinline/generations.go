package sqlinline

const QInsertGeneration = `--sql 675e418f-d0d7-4945-b3c9-47e9e4411ef2
insert into generations
    (id, owner_id, tool, status, credits_used, from_subscription, from_extras, params_json)
values
    ($1::uuid, $2::uuid, $3::text, $4::text, $5::int, $6::int, $7::int, $8::jsonb);
`

const generationColumns = `id, owner_id, tool, status, credits_used, from_subscription, from_extras,
       coalesce(task_handle, ''), coalesce(result_url, ''), progress, params_json,
       coalesce(last_error, ''), created_at, updated_at, completed_at, failed_at`

const QSelectGeneration = `--sql 1fd15569-78c2-40dd-aad6-1afec91dac35
select ` + generationColumns + `
from generations
where id = $1::uuid;
`

const QSelectGenerationForOwner = `--sql 1a90b925-859b-4ffb-8b9c-8484c1578f2b
select ` + generationColumns + `
from generations
where id = $1::uuid and owner_id = $2::uuid;
`

const QListGenerationsByOwner = `--sql b273e5c6-f28a-4151-a4c2-c58d9ae03ef4
select ` + generationColumns + `
from generations
where owner_id = $1::uuid
order by created_at desc
limit $2::int;
`

const QMarkGenerationProcessing = `--sql 0ca7ad53-4ede-4425-b96c-1166acfe057a
update generations
set status = 'processing', task_handle = $2::text, updated_at = now()
where id = $1::uuid and status = 'pending';
`

const QSetGenerationProgress = `--sql af960df8-3527-4e67-8807-0ebf98f5f179
update generations
set progress = $2::int, updated_at = now()
where id = $1::uuid and status in ('pending', 'processing');
`

// Terminal transitions guard on the current status so duplicate sweeps
// observe zero affected rows instead of rewriting a finished generation.
const QCompleteGeneration = `--sql 91d83c4d-9434-44ac-8e2d-a6864980d2a1
update generations
set status = 'completed', result_url = $2::text, progress = 100,
    completed_at = now(), updated_at = now()
where id = $1::uuid and status in ('pending', 'processing');
`

const QFailGeneration = `--sql d20d68f3-4c12-42f5-bcd7-b6b50dc59d1e
update generations
set status = 'failed', last_error = $2::text,
    failed_at = now(), updated_at = now()
where id = $1::uuid and status in ('pending', 'processing');
`

// QClaimSweepBatch stamps swept_at on the rows it hands out so concurrent
// sweeps spread over the backlog instead of re-reading the same head.
const QClaimSweepBatch = `--sql 6535648e-2f2d-4d09-a431-7efdd8920a2f
with batch as (
    select id
    from generations
    where status in ('pending', 'processing')
    order by swept_at asc nulls first, created_at asc
    for update skip locked
    limit $1::int
)
update generations g
set swept_at = now()
where g.id in (select id from batch)
returning ` + generationColumns + `;
`

const QDeleteTerminalGeneration = `--sql b66501cb-a24e-4309-b71c-045abc69c528
delete from generations
where id = $1::uuid and owner_id = $2::uuid and status in ('completed', 'failed');
`

const QPurgeFailedGenerations = `--sql 53ee8b6b-ce4d-4177-8b6c-51160685a9c7
delete from generations
where status = 'failed' and failed_at < $1::timestamptz;
`
