package sqlinline

const QGetBalance = `--sql c5b2c85f-3ad2-477d-bd6a-6ff7967fffdd
select account_id, subscription_credits, extra_credits, subscription_active
from account_balances
where account_id = $1::uuid;
`

// QDeductCredits draws from the subscription pool first and spills the
// remainder into extras, in one conditional UPDATE. The locked CTE read
// makes the availability check and the write a single atomic step; zero
// rows back means the spendable total was short (or the account is gone,
// callers disambiguate with QGetBalance).
const QDeductCredits = `--sql a6437a78-b1af-4fb4-b4cb-6a2364148dbb
with debit as (
    select account_id,
           least(subscription_credits, $2::int)            as from_subscription,
           $2::int - least(subscription_credits, $2::int)  as from_extras
    from account_balances
    where account_id = $1::uuid
      and subscription_credits
          + case when subscription_active then extra_credits else 0 end >= $2::int
    for update
)
update account_balances b
set subscription_credits = b.subscription_credits - d.from_subscription,
    extra_credits        = b.extra_credits - d.from_extras,
    updated_at           = now()
from debit d
where b.account_id = d.account_id
returning d.from_subscription, d.from_extras,
          b.subscription_credits, b.extra_credits, b.subscription_active;
`

const QRefundCredits = `--sql 31dcc7b5-97a1-40a7-a814-0bf88e84b413
update account_balances
set subscription_credits = subscription_credits + $2::int,
    extra_credits        = extra_credits + $3::int,
    updated_at           = now()
where account_id = $1::uuid
returning subscription_credits, extra_credits, subscription_active;
`
