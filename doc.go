// Package accounts provides the account, identity, and authorization core
// for a multi-tenant project host: uniqueness of usernames, namespace
// paths, and email addresses, per-account project quotas, and the
// aggregation of project access across every grant path.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus field that is persisted via Bun.
//     Statuses cover active and blocked flows; blocked accounts keep all
//     their data and associations and can be re-activated at any time.
//   - AccountStateMachine centralizes the transition graph, BlockedAt
//     timestamp handling, and persistence. Invoke Transition with ActorRef
//     metadata whenever an admin moves an account, or use the Block and
//     Activate shortcuts on the Accounts repository.
//
// Identity registry:
//   - IdentityRegistry owns global uniqueness. A username claims a slot in
//     the namespace path space shared with groups, so reserving a username
//     checks the reserved-word denylist, existing usernames, and every
//     namespace path in one pass. SanitizeUsername derives a free username
//     from external input such as an email local part.
//
// Authorization:
//   - Resolver answers "which projects can this account touch" by merging
//     three grant paths: ownership through the personal namespace, group
//     membership, and direct per-project membership. Results are
//     deduplicated and stable-ordered. ResolverCache memoizes lookups for
//     the duration of a single request.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the command
//     handlers and the state machine to describe creation, deletion,
//     rename, and lifecycle events. Sinks run best-effort (errors are
//     logged) so you can forward to a database or queue without blocking
//     the mutation that produced them.
package accounts
