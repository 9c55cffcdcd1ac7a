// Package decisionengine implements investor governance decisions inside the
// project-governance context.
//
// The module owns the decision lifecycle (create, vote, finalize), the
// unanimity-with-veto quorum rules evaluated against live project membership,
// and decision event production through outbox-backed workers. Business rules
// live in the application/domain layers; infrastructure concerns sit behind
// ports and adapters.
package decisionengine
